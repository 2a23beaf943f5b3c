//go:build !js && !wasm

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/MediaDNA/pkg/models"
)

const DefaultDBFile = "mediadna.sqlite3"

// DBClient stores fingerprint records in SQLite through gorm.
type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Media is the row for one fingerprinted item.
type Media struct {
	ID              string  `gorm:"primaryKey;type:varchar(36)"`
	Title           string  `gorm:"index:idx_media_title"`
	Source          string  `gorm:"index:idx_media_source"`
	Kind            string  `gorm:"type:varchar(8)"`
	DurationMs      int
	FrameCount      int
	SegmentCount    int
	RobustVideoHash string  `gorm:"type:char(64);index:idx_robust_video"`
	RobustAudioHash *string `gorm:"type:char(64);index:idx_robust_audio"`
	CreatedAt       time.Time
}

// UnitHash is the row for one per-unit hash.
type UnitHash struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	MediaID  string `gorm:"type:varchar(36);index:idx_unit_media,priority:1"`
	Modality string `gorm:"type:varchar(8);index:idx_unit_media,priority:2"`
	Position int    `gorm:"index:idx_unit_media,priority:3"`
	Hash     string
}

// NewDBClient opens the database named by MEDIADNA_DB_PATH, or DefaultDBFile.
func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("MEDIADNA_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

// NewDBClientWithPath opens (creating if needed) the database at dbPath and
// migrates its schema.
func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Media{}, &UnitHash{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) ready() error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SaveMedia inserts rec and its unit hashes in one transaction and returns
// the new ID. rec.ID is ignored.
func (c *DBClient) SaveMedia(ctx context.Context, rec *models.MediaRecord, hashes []models.UnitHash) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	row := Media{
		ID:              uuid.NewString(),
		Title:           rec.Title,
		Source:          rec.Source,
		Kind:            rec.Kind,
		DurationMs:      rec.DurationMs,
		FrameCount:      rec.FrameCount,
		SegmentCount:    rec.SegmentCount,
		RobustVideoHash: rec.RobustVideoHash,
		RobustAudioHash: rec.RobustAudioHash,
	}
	units := make([]UnitHash, len(hashes))
	for i, h := range hashes {
		units[i] = UnitHash{MediaID: row.ID, Modality: h.Modality, Position: h.Position, Hash: h.Hash}
	}

	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("creating media: %w", err)
		}
		if len(units) > 0 {
			if err := tx.CreateInBatches(units, 500).Error; err != nil {
				return fmt.Errorf("batch insert unit hashes: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return row.ID, nil
}

// GetMediaByID returns ErrNotFound for unknown IDs.
func (c *DBClient) GetMediaByID(ctx context.Context, id string) (*models.MediaRecord, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var row Media
	err := c.DB.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying media: %w", err)
	}
	return row.toRecord(), nil
}

// GetUnitHashes returns the unit hashes of a media item ordered by modality
// then position.
func (c *DBClient) GetUnitHashes(ctx context.Context, id string) ([]models.UnitHash, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var rows []UnitHash
	if err := c.DB.WithContext(ctx).Where("media_id = ?", id).Order("modality, position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying unit hashes: %w", err)
	}
	out := make([]models.UnitHash, len(rows))
	for i, r := range rows {
		out[i] = models.UnitHash{MediaID: r.MediaID, Modality: r.Modality, Position: r.Position, Hash: r.Hash}
	}
	return out, nil
}

// FindByRobustHash returns every record whose robust video hash equals hash.
func (c *DBClient) FindByRobustHash(ctx context.Context, hash string) ([]models.MediaRecord, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var rows []Media
	if err := c.DB.WithContext(ctx).Where("robust_video_hash = ?", hash).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying robust hash: %w", err)
	}
	return toRecords(rows), nil
}

// ListMedia returns all records, newest first.
func (c *DBClient) ListMedia(ctx context.Context) ([]models.MediaRecord, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var rows []Media
	if err := c.DB.WithContext(ctx).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing media: %w", err)
	}
	return toRecords(rows), nil
}

// CountMedia returns the number of stored records.
func (c *DBClient) CountMedia(ctx context.Context) (int, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	var n int64
	if err := c.DB.WithContext(ctx).Model(&Media{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting media: %w", err)
	}
	return int(n), nil
}

// DeleteMediaByID removes a record and its hashes. Unknown IDs yield ErrNotFound.
func (c *DBClient) DeleteMediaByID(ctx context.Context, id string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("media_id = ?", id).Delete(&UnitHash{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Media{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (m *Media) toRecord() *models.MediaRecord {
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

func toRecords(rows []Media) []models.MediaRecord {
	out := make([]models.MediaRecord, len(rows))
	for i := range rows {
		out[i] = *rows[i].toRecord()
	}
	return out
}
