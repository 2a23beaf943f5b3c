// Package sampler selects the units that get fingerprinted: a bounded set of
// frames spread uniformly across a video, or fixed-length audio segments.
package sampler

import (
	"context"
	"errors"
	"io"
	"iter"
	"math"
	"time"

	"github.com/himanishpuri/MediaDNA/internal/media"
)

// DefaultMaxFrames bounds how many frames a video contributes to its fingerprint.
const DefaultMaxFrames = 100

// VideoSampler picks at most MaxFrames frames at uniform time offsets.
type VideoSampler struct {
	maxFrames int
}

// NewVideoSampler returns a sampler taking at most n frames.
func NewVideoSampler(n int) (*VideoSampler, error) {
	if n <= 0 {
		return nil, &media.ConfigError{Field: "max_frames", Reason: "must be positive"}
	}
	return &VideoSampler{maxFrames: n}, nil
}

// MaxFrames returns the configured frame bound.
func (v *VideoSampler) MaxFrames() int { return v.maxFrames }

// Offsets returns the N seek positions for a stream of the given duration:
// i * duration / N for i in [0, N).
func (v *VideoSampler) Offsets(duration time.Duration) []time.Duration {
	if duration <= 0 {
		return nil
	}
	step := duration / time.Duration(v.maxFrames)
	offsets := make([]time.Duration, v.maxFrames)
	for i := range offsets {
		offsets[i] = time.Duration(i) * step
	}
	return offsets
}

// Frames lazily yields the sampled frames of src in presentation order. The
// sequence can be ranged over again to re-derive it from the same source.
//
// Each offset yields the first frame at or after it. When the stream holds
// fewer frames than offsets, a frame reached twice is yielded once. A frame
// that fails to decode is yielded as a *media.DecodeError and sampling moves
// on to the next offset; consumers that want to stop break out of the loop.
// Cancellation is yielded as the final element.
func (v *VideoSampler) Frames(ctx context.Context, src media.FrameSource) iter.Seq2[media.Frame, error] {
	return func(yield func(media.Frame, error) bool) {
		if src == nil {
			return
		}
		lastIndex := -1
		for _, offset := range v.Offsets(src.Duration()) {
			if err := ctx.Err(); err != nil {
				yield(media.Frame{}, err)
				return
			}

			frame, err := src.FrameAt(ctx, offset)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					yield(media.Frame{}, ctxErr)
					return
				}
				var decodeErr *media.DecodeError
				if !errors.As(err, &decodeErr) {
					err = &media.DecodeError{Op: "frame", Err: err}
				}
				if !yield(media.Frame{}, err) {
					return
				}
				continue
			}
			if frame.Index == lastIndex {
				continue
			}
			lastIndex = frame.Index

			if !yield(frame, nil) {
				return
			}
		}
	}
}

// SliceSource is an in-memory FrameSource over frames decoded ahead of time at
// a constant frame rate.
type SliceSource struct {
	frames []media.Frame
	fps    float64
}

// NewSliceSource assigns timestamps index/fps to frames.
func NewSliceSource(fps float64, images ...media.Frame) (*SliceSource, error) {
	if fps <= 0 {
		return nil, &media.ConfigError{Field: "fps", Reason: "must be positive"}
	}
	frames := make([]media.Frame, len(images))
	for i, f := range images {
		f.Index = i
		f.Timestamp = framesToDuration(i, fps)
		frames[i] = f
	}
	return &SliceSource{frames: frames, fps: fps}, nil
}

// Duration is frame count / fps.
func (s *SliceSource) Duration() time.Duration {
	return framesToDuration(len(s.frames), s.fps)
}

func framesToDuration(n int, fps float64) time.Duration {
	return time.Duration(math.Round(float64(n) * float64(time.Second) / fps))
}

// FrameAt returns the first frame whose timestamp is >= offset.
func (s *SliceSource) FrameAt(ctx context.Context, offset time.Duration) (media.Frame, error) {
	if err := ctx.Err(); err != nil {
		return media.Frame{}, err
	}
	for _, f := range s.frames {
		if f.Timestamp >= offset {
			return f, nil
		}
	}
	return media.Frame{}, io.EOF
}
