package sampler

import (
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/himanishpuri/MediaDNA/internal/media"
)

// DefaultSegmentDuration is the length of one audio unit.
const DefaultSegmentDuration = time.Second

// FinalSegmentPolicy decides what happens to a trailing segment shorter than
// the segment duration.
type FinalSegmentPolicy int

const (
	// PadFinal fills the short tail with silence up to the full duration.
	PadFinal FinalSegmentPolicy = iota
	// DropFinal discards the short tail.
	DropFinal
)

func (p FinalSegmentPolicy) String() string {
	switch p {
	case PadFinal:
		return "pad"
	case DropFinal:
		return "drop"
	default:
		return "unknown"
	}
}

// ParseFinalSegmentPolicy accepts "pad" or "drop".
func ParseFinalSegmentPolicy(s string) (FinalSegmentPolicy, error) {
	switch s {
	case "pad", "":
		return PadFinal, nil
	case "drop":
		return DropFinal, nil
	default:
		return 0, &media.ConfigError{Field: "final_segment_policy", Reason: fmt.Sprintf("unknown value %q", s)}
	}
}

// Segmenter cuts an audio track into contiguous fixed-duration segments.
type Segmenter struct {
	duration time.Duration
	policy   FinalSegmentPolicy
}

// NewSegmenter validates the segment duration and tail policy.
func NewSegmenter(d time.Duration, policy FinalSegmentPolicy) (*Segmenter, error) {
	if d <= 0 {
		return nil, &media.ConfigError{Field: "segment_duration", Reason: "must be positive"}
	}
	if policy != PadFinal && policy != DropFinal {
		return nil, &media.ConfigError{Field: "final_segment_policy", Reason: "unknown policy"}
	}
	return &Segmenter{duration: d, policy: policy}, nil
}

// SegmentLength returns the number of samples per segment at sampleRate.
func (s *Segmenter) SegmentLength(sampleRate int) int {
	return int(math.Round(s.duration.Seconds() * float64(sampleRate)))
}

// Segments yields the segments of track in order. An empty track yields
// nothing. Segment sample slices are copies; the track is never aliased.
func (s *Segmenter) Segments(track *media.AudioTrack) iter.Seq[media.Segment] {
	return func(yield func(media.Segment) bool) {
		if track.Empty() || track.SampleRate <= 0 {
			return
		}
		size := s.SegmentLength(track.SampleRate)
		if size <= 0 {
			return
		}

		for index, start := 0, 0; start < len(track.Samples); index, start = index+1, start+size {
			end := min(start+size, len(track.Samples))
			short := end-start < size
			if short && s.policy == DropFinal {
				return
			}

			samples := make([]float64, size)
			copy(samples, track.Samples[start:end])
			seg := media.Segment{
				Index:      index,
				Start:      time.Duration(index) * s.duration,
				Samples:    samples,
				SampleRate: track.SampleRate,
				Padded:     short,
			}
			if !yield(seg) {
				return
			}
		}
	}
}
