package mediadna

import (
	"context"

	"github.com/himanishpuri/MediaDNA/internal/compare"
	"github.com/himanishpuri/MediaDNA/pkg/models"
)

type Service interface {
	Fingerprint(ctx context.Context, source string) (*Bundle, error)
	FingerprintBytes(ctx context.Context, name string, data []byte) (*Bundle, error)
	HashImage(name string, data []byte) (*ImageHash, error)

	Compare(ctx context.Context, a, b string) (*Comparison, error)
	CompareBundles(a, b *Bundle) (*Comparison, error)
	CompareHashes(a, b string, threshold *float64) (*HashComparison, error)
	CompareWithArray(hash string, candidates []string, threshold *float64) compare.ArrayResult

	AddMedia(ctx context.Context, source, title string) (*models.MediaRecord, error)
	AddBundle(ctx context.Context, meta models.MediaRecord, b *Bundle) (*models.MediaRecord, error)
	Match(ctx context.Context, source string) ([]models.MatchResult, error)
	MatchBundle(ctx context.Context, b *Bundle) ([]models.MatchResult, error)
	GetMedia(ctx context.Context, id string) (*models.MediaRecord, error)
	GetMediaBundle(ctx context.Context, id string) (*Bundle, error)
	ListMedia(ctx context.Context) ([]models.MediaRecord, error)
	DeleteMedia(ctx context.Context, id string) error

	Stats(ctx context.Context) (*models.Stats, error)
	Close() error
}

type Storage interface {
	SaveMedia(ctx context.Context, rec *models.MediaRecord, hashes []models.UnitHash) (string, error)
	GetMediaByID(ctx context.Context, id string) (*models.MediaRecord, error)
	GetUnitHashes(ctx context.Context, id string) ([]models.UnitHash, error)
	FindByRobustHash(ctx context.Context, hash string) ([]models.MediaRecord, error)
	ListMedia(ctx context.Context) ([]models.MediaRecord, error)
	CountMedia(ctx context.Context) (int, error)
	DeleteMediaByID(ctx context.Context, id string) error
	Close() error
}

// Fetcher downloads a remote source to a local file. cleanup removes it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (path string, cleanup func(), err error)
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
