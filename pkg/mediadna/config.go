package mediadna

import (
	"time"

	"github.com/himanishpuri/MediaDNA/internal/compare"
	"github.com/himanishpuri/MediaDNA/internal/fingerprint"
	"github.com/himanishpuri/MediaDNA/internal/sampler"
)

// InMemoryCache passed to WithCacheDir keeps the bundle cache in memory.
const InMemoryCache = ":memory:"

type Config struct {
	DBPath          string
	TempDir         string
	CacheDir        string // empty disables the bundle cache
	CacheTTL        time.Duration
	AudioSampleRate int
	MatchLimit      int

	Pipeline          fingerprint.Config
	ImageThreshold    float64
	CombinedThreshold float64

	Logger  Logger
	Storage Storage
	Fetcher Fetcher
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithCacheDir enables the bundle cache under dir. Use InMemoryCache for a
// cache that does not outlive the service.
func WithCacheDir(dir string) Option {
	return func(c *Config) {
		c.CacheDir = dir
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.CacheTTL = ttl
	}
}

func WithHashSize(n int) Option {
	return func(c *Config) {
		c.Pipeline.Features.HashSize = n
	}
}

func WithWindow(n int) Option {
	return func(c *Config) {
		c.Pipeline.Features.Window = n
	}
}

func WithMaxFrames(n int) Option {
	return func(c *Config) {
		c.Pipeline.MaxFrames = n
	}
}

func WithSegmentDuration(d time.Duration) Option {
	return func(c *Config) {
		c.Pipeline.SegmentDuration = d
	}
}

func WithFinalSegmentPolicy(p sampler.FinalSegmentPolicy) Option {
	return func(c *Config) {
		c.Pipeline.FinalSegment = p
	}
}

func WithAudioSampleRate(rate int) Option {
	return func(c *Config) {
		c.AudioSampleRate = rate
	}
}

// WithWorkers sets the per-request worker pool size. Zero means one worker
// per CPU.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Pipeline.Workers = n
	}
}

// WithLenient skips units that fail to decode instead of failing the request.
func WithLenient(lenient bool) Option {
	return func(c *Config) {
		if lenient {
			c.Pipeline.Mode = fingerprint.Lenient
		} else {
			c.Pipeline.Mode = fingerprint.Strict
		}
	}
}

func WithThresholds(image, combined float64) Option {
	return func(c *Config) {
		c.ImageThreshold = image
		c.CombinedThreshold = combined
	}
}

func WithMatchLimit(n int) Option {
	return func(c *Config) {
		c.MatchLimit = n
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithFetcher(f Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:            "mediadna.sqlite3",
		TempDir:           "/tmp",
		AudioSampleRate:   44100,
		MatchLimit:        10,
		Pipeline:          fingerprint.DefaultConfig(),
		ImageThreshold:    compare.DefaultImageThreshold,
		CombinedThreshold: compare.DefaultCombinedThreshold,
	}
}
