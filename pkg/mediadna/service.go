//go:build !js && !wasm

package mediadna

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/MediaDNA/internal/compare"
	"github.com/himanishpuri/MediaDNA/internal/fingerprint"
	"github.com/himanishpuri/MediaDNA/internal/media"
	"github.com/himanishpuri/MediaDNA/internal/phash"
	"github.com/himanishpuri/MediaDNA/pkg/logger"
	"github.com/himanishpuri/MediaDNA/pkg/mediadna/acquire"
	"github.com/himanishpuri/MediaDNA/pkg/mediadna/cache"
	"github.com/himanishpuri/MediaDNA/pkg/mediadna/decode"
	"github.com/himanishpuri/MediaDNA/pkg/models"
	"github.com/himanishpuri/MediaDNA/pkg/utils"
)

// mediaService is the default implementation of the Service interface.
type mediaService struct {
	storage   Storage
	fetcher   Fetcher
	cache     *cache.BundleCache
	pipeline  *fingerprint.Pipeline
	cmp       *compare.Comparator
	log       Logger
	config    *Config
	signature string
	started   time.Time
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.WithComponent("mediadna")
	}
	if cfg.AudioSampleRate <= 0 {
		return nil, &media.ConfigError{Field: "audio_sample_rate", Reason: "must be positive"}
	}

	pipeline, err := fingerprint.NewPipeline(cfg.Pipeline)
	if err != nil {
		return nil, err
	}
	comparator := &compare.Comparator{
		ImageThreshold:    cfg.ImageThreshold,
		CombinedThreshold: cfg.CombinedThreshold,
	}
	if err := comparator.Validate(); err != nil {
		return nil, err
	}

	if cfg.Fetcher == nil {
		cfg.Fetcher = acquire.New(cfg.TempDir)
	}

	stor := cfg.Storage
	if stor == nil {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	var bundles *cache.BundleCache
	if cfg.CacheDir != "" {
		dir := cfg.CacheDir
		if dir == InMemoryCache {
			dir = ""
		}
		bundles, err = cache.Open(dir, cfg.CacheTTL)
		if err != nil {
			if cfg.Storage == nil {
				stor.Close()
			}
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
	}

	return &mediaService{
		storage:   stor,
		fetcher:   cfg.Fetcher,
		cache:     bundles,
		pipeline:  pipeline,
		cmp:       comparator,
		log:       cfg.Logger,
		config:    cfg,
		signature: signature(cfg),
		started:   time.Now(),
	}, nil
}

// signature identifies the settings that shape a bundle, so cached bundles
// computed under other settings are never returned.
func signature(cfg *Config) string {
	p := cfg.Pipeline
	return fmt.Sprintf("v1|%d|%d|%d|%s|%s|%s|%d",
		p.Features.HashSize, p.Features.Window, p.MaxFrames,
		p.SegmentDuration, p.FinalSegment, p.Mode, cfg.AudioSampleRate)
}

// withLocal runs fn with a local path for source, downloading it first when
// source is a URL.
func (s *mediaService) withLocal(ctx context.Context, source string, fn func(path string) error) error {
	if !utils.IsRemoteURL(source) {
		if _, err := os.Stat(source); err != nil {
			return &media.DecodeError{Op: "open", Err: err}
		}
		return fn(source)
	}

	s.log.Infof("Downloading %s", source)
	path, cleanup, err := s.fetcher.Fetch(ctx, source)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	defer cleanup()
	return fn(path)
}

// Fingerprint fingerprints a local file or a URL.
func (s *mediaService) Fingerprint(ctx context.Context, source string) (*Bundle, error) {
	var b *Bundle
	err := s.withLocal(ctx, source, func(path string) error {
		var err error
		b, err = s.fingerprintPath(ctx, path)
		return err
	})
	return b, err
}

func (s *mediaService) fingerprintPath(ctx context.Context, path string) (*Bundle, error) {
	var key []byte
	if s.cache != nil {
		k, err := cache.KeyForFile(s.signature, path)
		if err != nil {
			return nil, fmt.Errorf("hashing %s: %w", path, err)
		}
		key = k
		if b, ok := s.cacheGet(key); ok {
			s.log.Debugf("Cache hit for %s", path)
			return b, nil
		}
	}

	in, err := decode.Open(ctx, path, decode.Options{
		TempDir:    s.config.TempDir,
		SampleRate: s.config.AudioSampleRate,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	b, err := s.pipeline.FingerprintInput(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Fingerprinted %s: %d frames, %d segments in %v",
		filepath.Base(path), len(b.FrameHashes), len(b.AudioHashes()), time.Since(start).Round(time.Millisecond))
	if b.SkippedFrames > 0 || b.SkippedSegments > 0 {
		s.log.Warnf("Skipped %d frames and %d segments of %s", b.SkippedFrames, b.SkippedSegments, path)
	}

	s.cachePut(key, b)
	return b, nil
}

// FingerprintBytes fingerprints in-memory media. Images and WAV are decoded
// directly; containers go through a temp file.
func (s *mediaService) FingerprintBytes(ctx context.Context, name string, data []byte) (*Bundle, error) {
	var key []byte
	if s.cache != nil {
		key = cache.Key(s.signature, data)
		if b, ok := s.cacheGet(key); ok {
			return b, nil
		}
	}

	b, err := s.pipeline.FingerprintInput(ctx, media.RawBytes{Name: name, Data: data})
	if errors.Is(err, media.ErrUnsupportedContainer) {
		b, err = s.fingerprintViaTemp(ctx, name, data)
	}
	if err != nil {
		return nil, err
	}
	s.cachePut(key, b)
	return b, nil
}

func (s *mediaService) fingerprintViaTemp(ctx context.Context, name string, data []byte) (*Bundle, error) {
	if err := media.VerifyVideoFormat(name); err != nil {
		return nil, &media.DecodeError{Op: "sniff", Err: err}
	}
	path, err := utils.WriteTemp(s.config.TempDir, name, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	in, err := decode.Open(ctx, path, decode.Options{
		TempDir:    s.config.TempDir,
		SampleRate: s.config.AudioSampleRate,
	})
	if err != nil {
		return nil, err
	}
	return s.pipeline.FingerprintInput(ctx, in)
}

func (s *mediaService) cacheGet(key []byte) (*Bundle, bool) {
	if s.cache == nil || key == nil {
		return nil, false
	}
	b, ok, err := s.cache.Get(key)
	if err != nil {
		s.log.Warnf("Cache read failed: %v", err)
		return nil, false
	}
	return b, ok
}

func (s *mediaService) cachePut(key []byte, b *Bundle) {
	if s.cache == nil || key == nil {
		return
	}
	if err := s.cache.Put(key, b); err != nil {
		s.log.Warnf("Cache write failed: %v", err)
	}
}

// HashImage hashes a still image with the DCT hash and the auxiliary
// average hash.
func (s *mediaService) HashImage(name string, data []byte) (*ImageHash, error) {
	in, err := media.Resolve(media.RawBytes{Name: name, Data: data})
	if err != nil {
		return nil, err
	}
	img, ok := in.(media.DecodedImage)
	if !ok {
		return nil, &media.DecodeError{Op: "image", Err: fmt.Errorf("%s is not an image", name)}
	}

	h, err := s.pipeline.HashImage(img.Image)
	if err != nil {
		return nil, err
	}
	avg, err := phash.AverageHash(img.Image)
	if err != nil {
		return nil, err
	}
	bounds := img.Image.Bounds()
	return &ImageHash{
		Hash:        h.String(),
		Hex:         h.Hex(),
		AverageHash: avg.String(),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}, nil
}

// Compare fingerprints both sources concurrently and compares the bundles.
func (s *mediaService) Compare(ctx context.Context, a, b string) (*Comparison, error) {
	var left, right *Bundle
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		left, err = s.Fingerprint(gctx, a)
		return err
	})
	g.Go(func() (err error) {
		right, err = s.Fingerprint(gctx, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s.CompareBundles(left, right)
}

func (s *mediaService) CompareBundles(a, b *Bundle) (*Comparison, error) {
	c, err := s.cmp.Bundles(a, b)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CompareHashes compares two hash strings of the same length. Packed hex
// hashes are compared bit by bit. A nil threshold uses the image threshold.
func (s *mediaService) CompareHashes(a, b string, threshold *float64) (*HashComparison, error) {
	t, err := s.threshold(threshold)
	if err != nil {
		return nil, err
	}
	kind, r, err := compare.CompareHashes(a, b, t)
	if err != nil {
		return nil, err
	}
	return &HashComparison{Kind: kind, Result: r}, nil
}

func (s *mediaService) CompareWithArray(hash string, candidates []string, threshold *float64) compare.ArrayResult {
	t, err := s.threshold(threshold)
	if err != nil {
		t = s.cmp.ImageThreshold
	}
	return compare.CompareWithArray(hash, candidates, t)
}

func (s *mediaService) threshold(t *float64) (float64, error) {
	if t == nil {
		return s.cmp.ImageThreshold, nil
	}
	if *t < 0 || *t > 1 {
		return 0, &media.ConfigError{Field: "threshold", Reason: "must be within [0, 1]"}
	}
	return *t, nil
}

// AddMedia fingerprints source and stores it in the library.
func (s *mediaService) AddMedia(ctx context.Context, source, title string) (*models.MediaRecord, error) {
	s.log.Infof("Adding media: %s", source)

	var rec *models.MediaRecord
	err := s.withLocal(ctx, source, func(path string) error {
		b, err := s.fingerprintPath(ctx, path)
		if err != nil {
			return err
		}
		meta := models.MediaRecord{
			Title:      title,
			Source:     source,
			Kind:       inferKind(path, b),
			DurationMs: s.durationMs(ctx, path),
		}
		rec, err = s.AddBundle(ctx, meta, b)
		return err
	})
	return rec, err
}

func (s *mediaService) durationMs(ctx context.Context, path string) int {
	if media.IsImageFile(path) {
		return 0
	}
	probe, err := decode.ProbeFile(ctx, path)
	if err != nil {
		s.log.Warnf("Failed to probe duration of %s: %v", path, err)
		return 0
	}
	return int(probe.Duration.Milliseconds())
}

func inferKind(path string, b *Bundle) string {
	switch {
	case len(b.FrameHashes) == 0 && b.HasAudio():
		return models.KindAudio
	case media.IsImageFile(path):
		return models.KindImage
	default:
		return models.KindVideo
	}
}

// AddBundle stores an already computed bundle. Title, Source, Kind and
// DurationMs are taken from meta; Kind is inferred when empty.
func (s *mediaService) AddBundle(ctx context.Context, meta models.MediaRecord, b *Bundle) (*models.MediaRecord, error) {
	if b == nil {
		return nil, errors.New("add bundle: nil bundle")
	}
	rec := meta
	if rec.Kind == "" {
		rec.Kind = inferKind(rec.Source, b)
	}
	if rec.Title == "" {
		rec.Title = filepath.Base(rec.Source)
	}
	rec.FrameCount = len(b.FrameHashes)
	rec.SegmentCount = len(b.AudioHashes())
	rec.RobustVideoHash = b.RobustVideoHash
	rec.RobustAudioHash = nil
	if b.HasAudio() {
		h := b.Audio.RobustHash
		rec.RobustAudioHash = &h
	}

	hashes := make([]models.UnitHash, 0, rec.FrameCount+rec.SegmentCount)
	for i, h := range b.FrameHashes {
		hashes = append(hashes, models.UnitHash{Modality: models.ModalityFrame, Position: i, Hash: h.String()})
	}
	for i, h := range b.AudioHashes() {
		hashes = append(hashes, models.UnitHash{Modality: models.ModalitySegment, Position: i, Hash: h.String()})
	}

	id, err := s.storage.SaveMedia(ctx, &rec, hashes)
	if err != nil {
		return nil, fmt.Errorf("failed to save media: %w", err)
	}
	s.log.Infof("Successfully added media ID=%s (%d frame, %d segment hashes)", id, rec.FrameCount, rec.SegmentCount)
	return s.storage.GetMediaByID(ctx, id)
}

// Match fingerprints source and ranks the library against it.
func (s *mediaService) Match(ctx context.Context, source string) ([]models.MatchResult, error) {
	s.log.Infof("Matching media: %s", source)
	b, err := s.Fingerprint(ctx, source)
	if err != nil {
		return nil, err
	}
	return s.MatchBundle(ctx, b)
}

// MatchBundle compares b against every stored bundle and returns the best
// matches, highest overall similarity first. Entries whose robust hashes
// equal the query's are flagged as exact matches. Entries hashed under a
// different hash size are skipped. Storage failures abort the match.
func (s *mediaService) MatchBundle(ctx context.Context, b *Bundle) ([]models.MatchResult, error) {
	if b == nil {
		return nil, errors.New("match: nil bundle")
	}
	records, err := s.storage.ListMedia(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	exact := make(map[string]bool)
	same, err := s.storage.FindByRobustHash(ctx, b.RobustVideoHash)
	if err != nil {
		return nil, fmt.Errorf("robust hash lookup: %w", err)
	}
	for _, r := range same {
		if robustAudioEqual(&r, b) {
			exact[r.ID] = true
		}
	}

	results := make([]models.MatchResult, 0, len(records))
	for i := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := &records[i]
		stored, err := s.GetMediaBundle(ctx, rec.ID)
		if errors.Is(err, ErrNotFound) {
			// Deleted since ListMedia.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading hashes of %s: %w", rec.ID, err)
		}
		c, err := s.cmp.Bundles(b, stored)
		if err != nil {
			var mismatch *compare.LengthMismatchError
			if errors.As(err, &mismatch) {
				s.log.Debugf("Skipping %s: %v", rec.ID, err)
				continue
			}
			return nil, err
		}
		results = append(results, models.MatchResult{
			MediaID:           rec.ID,
			Title:             rec.Title,
			Source:            rec.Source,
			VideoSimilarity:   c.VideoSimilarity,
			AudioSimilarity:   c.AudioSimilarity,
			OverallSimilarity: c.OverallSimilarity,
			IsSameContent:     c.IsSameContent || exact[rec.ID],
			ExactMatch:        exact[rec.ID],
		})
	}

	slices.SortStableFunc(results, func(x, y models.MatchResult) int {
		if x.ExactMatch != y.ExactMatch {
			if x.ExactMatch {
				return -1
			}
			return 1
		}
		return cmp.Compare(y.OverallSimilarity, x.OverallSimilarity)
	})
	if limit := s.config.MatchLimit; limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	s.log.Infof("Returning %d matches out of %d entries", len(results), len(records))
	return results, nil
}

func robustAudioEqual(rec *models.MediaRecord, b *Bundle) bool {
	if !b.HasAudio() {
		return !rec.HasAudio()
	}
	return rec.HasAudio() && *rec.RobustAudioHash == b.Audio.RobustHash
}

// GetMediaBundle rebuilds the bundle of a stored entry from its unit hashes.
func (s *mediaService) GetMediaBundle(ctx context.Context, id string) (*Bundle, error) {
	rec, err := s.storage.GetMediaByID(ctx, id)
	if err != nil {
		return nil, err
	}
	units, err := s.storage.GetUnitHashes(ctx, id)
	if err != nil {
		return nil, err
	}

	var frames, segments []phash.Hash
	for _, u := range units {
		switch u.Modality {
		case models.ModalityFrame:
			frames = append(frames, phash.Hash(u.Hash))
		case models.ModalitySegment:
			segments = append(segments, phash.Hash(u.Hash))
		}
	}
	return fingerprint.NewBundle(frames, segments, rec.HasAudio()), nil
}

func (s *mediaService) GetMedia(ctx context.Context, id string) (*models.MediaRecord, error) {
	return s.storage.GetMediaByID(ctx, id)
}

func (s *mediaService) ListMedia(ctx context.Context) ([]models.MediaRecord, error) {
	return s.storage.ListMedia(ctx)
}

func (s *mediaService) DeleteMedia(ctx context.Context, id string) error {
	return s.storage.DeleteMediaByID(ctx, id)
}

func (s *mediaService) Stats(ctx context.Context) (*models.Stats, error) {
	n, err := s.storage.CountMedia(ctx)
	if err != nil {
		return nil, err
	}
	st := &models.Stats{
		MediaCount: n,
		Workers:    s.pipeline.Workers(),
		Uptime:     time.Since(s.started),
	}
	if s.cache != nil {
		st.CacheHits, st.CacheMisses = s.cache.Stats()
	}
	return st, nil
}

// Close releases all resources held by the service.
func (s *mediaService) Close() error {
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	errs = append(errs, s.storage.Close())
	return errors.Join(errs...)
}
