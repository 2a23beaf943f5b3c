//go:build !js && !wasm

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/himanishpuri/MediaDNA/pkg/models"
)

const (
	DefaultMongoDatabase  = "mediadna"
	mediaCollection       = "media"
	defaultConnectTimeout = 10 * time.Second
)

// MongoClient stores each media item as one document holding its unit hashes.
type MongoClient struct {
	client *mongo.Client
	media  *mongo.Collection
}

type mongoUnit struct {
	Modality string `bson:"modality"`
	Position int    `bson:"position"`
	Hash     string `bson:"hash"`
}

type mongoMedia struct {
	ID              string      `bson:"_id"`
	Title           string      `bson:"title"`
	Source          string      `bson:"source"`
	Kind            string      `bson:"kind"`
	DurationMs      int         `bson:"duration_ms"`
	FrameCount      int         `bson:"frame_count"`
	SegmentCount    int         `bson:"segment_count"`
	RobustVideoHash string      `bson:"robust_video_hash"`
	RobustAudioHash *string     `bson:"robust_audio_hash"`
	Units           []mongoUnit `bson:"units"`
	CreatedAt       time.Time   `bson:"created_at"`
}

// NewMongoClient connects to uri, pings the server and ensures the robust
// hash index exists.
func NewMongoClient(ctx context.Context, uri, database string) (*MongoClient, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	coll := client.Database(database).Collection(mediaCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "robust_video_hash", Value: 1}},
		Options: options.Index().SetName("idx_robust_video"),
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("creating index: %w", err)
	}
	return &MongoClient{client: client, media: coll}, nil
}

func (c *MongoClient) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Disconnect(context.Background())
}

func (c *MongoClient) SaveMedia(ctx context.Context, rec *models.MediaRecord, hashes []models.UnitHash) (string, error) {
	doc := mongoMedia{
		ID:              uuid.NewString(),
		Title:           rec.Title,
		Source:          rec.Source,
		Kind:            rec.Kind,
		DurationMs:      rec.DurationMs,
		FrameCount:      rec.FrameCount,
		SegmentCount:    rec.SegmentCount,
		RobustVideoHash: rec.RobustVideoHash,
		RobustAudioHash: rec.RobustAudioHash,
		Units:           make([]mongoUnit, len(hashes)),
		CreatedAt:       time.Now().UTC(),
	}
	for i, h := range hashes {
		doc.Units[i] = mongoUnit{Modality: h.Modality, Position: h.Position, Hash: h.Hash}
	}
	if _, err := c.media.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("inserting media: %w", err)
	}
	return doc.ID, nil
}

func (c *MongoClient) find(ctx context.Context, id string) (*mongoMedia, error) {
	var doc mongoMedia
	err := c.media.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying media: %w", err)
	}
	return &doc, nil
}

func (c *MongoClient) GetMediaByID(ctx context.Context, id string) (*models.MediaRecord, error) {
	doc, err := c.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toRecord(), nil
}

func (c *MongoClient) GetUnitHashes(ctx context.Context, id string) ([]models.UnitHash, error) {
	doc, err := c.find(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]models.UnitHash, len(doc.Units))
	for i, u := range doc.Units {
		out[i] = models.UnitHash{MediaID: doc.ID, Modality: u.Modality, Position: u.Position, Hash: u.Hash}
	}
	return out, nil
}

func (c *MongoClient) FindByRobustHash(ctx context.Context, hash string) ([]models.MediaRecord, error) {
	return c.list(ctx, bson.M{"robust_video_hash": hash})
}

func (c *MongoClient) ListMedia(ctx context.Context) ([]models.MediaRecord, error) {
	return c.list(ctx, bson.M{})
}

func (c *MongoClient) list(ctx context.Context, filter bson.M) ([]models.MediaRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"units": 0})
	cur, err := c.media.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing media: %w", err)
	}
	var docs []mongoMedia
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding media: %w", err)
	}
	out := make([]models.MediaRecord, len(docs))
	for i := range docs {
		out[i] = *docs[i].toRecord()
	}
	return out, nil
}

func (c *MongoClient) CountMedia(ctx context.Context) (int, error) {
	n, err := c.media.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("counting media: %w", err)
	}
	return int(n), nil
}

func (c *MongoClient) DeleteMediaByID(ctx context.Context, id string) error {
	res, err := c.media.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting media: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *mongoMedia) toRecord() *models.MediaRecord {
	return &models.MediaRecord{
		ID:              m.ID,
		Title:           m.Title,
		Source:          m.Source,
		Kind:            m.Kind,
		DurationMs:      m.DurationMs,
		FrameCount:      m.FrameCount,
		SegmentCount:    m.SegmentCount,
		RobustVideoHash: m.RobustVideoHash,
		RobustAudioHash: m.RobustAudioHash,
		CreatedAt:       m.CreatedAt,
	}
}
