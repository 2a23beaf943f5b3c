package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"image"
	"iter"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/MediaDNA/internal/features"
	"github.com/himanishpuri/MediaDNA/internal/media"
	"github.com/himanishpuri/MediaDNA/internal/phash"
	"github.com/himanishpuri/MediaDNA/internal/sampler"
)

// Mode selects how a pipeline reacts to a unit that fails to hash.
type Mode int

const (
	// Strict fails the whole request on the first unit failure.
	Strict Mode = iota
	// Lenient skips failing units and counts them in the bundle.
	Lenient
)

func (m Mode) String() string {
	if m == Lenient {
		return "lenient"
	}
	return "strict"
}

// Config collects everything a Pipeline needs.
type Config struct {
	Features        features.Config
	MaxFrames       int
	SegmentDuration time.Duration
	FinalSegment    sampler.FinalSegmentPolicy
	Workers         int // <= 0 means runtime.NumCPU()
	Mode            Mode
}

// DefaultConfig: 64-bit hashes, 100 frames, 1 s padded segments, strict.
func DefaultConfig() Config {
	return Config{
		Features:        features.DefaultConfig(),
		MaxFrames:       sampler.DefaultMaxFrames,
		SegmentDuration: sampler.DefaultSegmentDuration,
		FinalSegment:    sampler.PadFinal,
		Mode:            Strict,
	}
}

// Pipeline samples media, hashes each unit on a bounded worker pool and
// reassembles the hashes in sampling order. It holds no per-request state
// and may be shared.
type Pipeline struct {
	images    *features.ImageExtractor
	audio     *features.AudioExtractor
	frames    *sampler.VideoSampler
	segmenter *sampler.Segmenter
	workers   int
	mode      Mode
}

// NewPipeline validates cfg. Every invalid field yields a *media.ConfigError.
func NewPipeline(cfg Config) (*Pipeline, error) {
	images, err := features.NewImageExtractor(cfg.Features)
	if err != nil {
		return nil, err
	}
	audio, err := features.NewAudioExtractor(cfg.Features)
	if err != nil {
		return nil, err
	}
	frames, err := sampler.NewVideoSampler(cfg.MaxFrames)
	if err != nil {
		return nil, err
	}
	segmenter, err := sampler.NewSegmenter(cfg.SegmentDuration, cfg.FinalSegment)
	if err != nil {
		return nil, err
	}
	if cfg.Mode != Strict && cfg.Mode != Lenient {
		return nil, &media.ConfigError{Field: "mode", Reason: "unknown mode"}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pipeline{
		images:    images,
		audio:     audio,
		frames:    frames,
		segmenter: segmenter,
		workers:   workers,
		mode:      cfg.Mode,
	}, nil
}

// Workers returns the size of the worker pool.
func (p *Pipeline) Workers() int { return p.workers }

// Mode returns the partial-failure mode.
func (p *Pipeline) Mode() Mode { return p.mode }

// HashImage hashes a single still image.
func (p *Pipeline) HashImage(img image.Image) (phash.Hash, error) {
	block, err := p.images.Extract(img)
	if err != nil {
		return "", err
	}
	return phash.Encode(block), nil
}

// HashFrames hashes the sampled frames of src. The second return value is
// the number of frames skipped in lenient mode.
func (p *Pipeline) HashFrames(ctx context.Context, src media.FrameSource) ([]phash.Hash, int, error) {
	return hashUnits(ctx, p, "frame", p.frames.Frames(ctx, src), func(f media.Frame) (phash.Hash, error) {
		return p.HashImage(f.Image)
	})
}

// HashSegments hashes the fixed-duration segments of track.
func (p *Pipeline) HashSegments(ctx context.Context, track *media.AudioTrack) ([]phash.Hash, int, error) {
	return hashUnits(ctx, p, "segment", withNilErr(p.segmenter.Segments(track)), func(s media.Segment) (phash.Hash, error) {
		block, err := p.audio.Extract(s)
		if err != nil {
			return "", err
		}
		return phash.Encode(block), nil
	})
}

// Fingerprint builds the bundle for a video stream and its optional audio
// track. A nil or empty track produces a bundle without audio.
func (p *Pipeline) Fingerprint(ctx context.Context, video media.FrameSource, audio *media.AudioTrack) (*Bundle, error) {
	frames, skippedFrames, err := p.HashFrames(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("hash frames: %w", err)
	}

	var segments []phash.Hash
	var skippedSegments int
	if !audio.Empty() {
		segments, skippedSegments, err = p.HashSegments(ctx, audio)
		if err != nil {
			return nil, fmt.Errorf("hash segments: %w", err)
		}
	}

	b := NewBundle(frames, segments, !audio.Empty())
	b.SkippedFrames = skippedFrames
	b.SkippedSegments = skippedSegments
	return b, nil
}

// FingerprintInput resolves in and fingerprints it. A still image becomes a
// single-frame bundle; an audio-only input has no frame hashes. Raw bytes
// holding a container are rejected with a DecodeError wrapping
// media.ErrUnsupportedContainer.
func (p *Pipeline) FingerprintInput(ctx context.Context, in media.Input) (*Bundle, error) {
	resolved, err := media.Resolve(in)
	if err != nil {
		return nil, err
	}
	switch v := resolved.(type) {
	case media.DecodedImage:
		h, err := p.HashImage(v.Image)
		if err != nil {
			return nil, err
		}
		return NewBundle([]phash.Hash{h}, nil, false), nil
	case media.DecodedVideo:
		return p.Fingerprint(ctx, v.Source, v.Audio)
	case media.DecodedAudio:
		return p.Fingerprint(ctx, nil, v.Track)
	default:
		return nil, &media.DecodeError{Op: "input", Err: fmt.Errorf("unsupported input %T", resolved)}
	}
}

type slot struct {
	hash    phash.Hash
	skipped bool
}

// hashUnits dispatches every unit of seq to the worker pool. Each unit gets
// its own slot so results come back in sequence order regardless of which
// worker finishes first.
func hashUnits[T any](ctx context.Context, p *Pipeline, kind string, seq iter.Seq2[T, error], hash func(T) (phash.Hash, error)) ([]phash.Hash, int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var slots []*slot
	skipped := 0
	var seqErr error

	for unit, err := range seq {
		if err != nil {
			if p.mode == Lenient && isUnitFailure(err) {
				skipped++
				continue
			}
			seqErr = err
			break
		}
		if gctx.Err() != nil {
			break
		}

		s := &slot{}
		slots = append(slots, s)
		index := len(slots) - 1
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := hash(unit)
			if err != nil {
				if p.mode == Lenient && isUnitFailure(err) {
					s.skipped = true
					return nil
				}
				return fmt.Errorf("%s %d: %w", kind, index, err)
			}
			s.hash = h
			return nil
		})
	}

	waitErr := g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if waitErr != nil {
		return nil, 0, waitErr
	}
	if seqErr != nil {
		return nil, 0, seqErr
	}

	hashes := make([]phash.Hash, 0, len(slots))
	for _, s := range slots {
		if s.skipped {
			skipped++
			continue
		}
		hashes = append(hashes, s.hash)
	}
	return hashes, skipped, nil
}

// isUnitFailure reports whether err concerns a single unit and may be
// skipped in lenient mode. Cancellation never is.
func isUnitFailure(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var decodeErr *media.DecodeError
	return errors.As(err, &decodeErr)
}

func withNilErr[T any](seq iter.Seq[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for v := range seq {
			if !yield(v, nil) {
				return
			}
		}
	}
}
