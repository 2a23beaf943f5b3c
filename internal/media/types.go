package media

import (
	"image"
	"time"
)

// Frame is one sampled video frame or a still image.
type Frame struct {
	Index     int           // position of the frame in the source stream
	Timestamp time.Duration // presentation time of the frame
	Image     image.Image
}

// Segment is one fixed-duration slice of an audio track.
type Segment struct {
	Index      int
	Start      time.Duration
	Samples    []float64 // mono, normalized to [-1, 1]
	SampleRate int
	Padded     bool // true when the tail was filled with silence
}

// Duration returns the length of the segment's sample buffer.
func (s Segment) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.Samples)) / float64(s.SampleRate) * float64(time.Second))
}

// AudioTrack is a decoded mono audio stream.
type AudioTrack struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the playing time of the track.
func (t *AudioTrack) Duration() time.Duration {
	if t == nil || t.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(t.Samples)) / float64(t.SampleRate) * float64(time.Second))
}

// Empty reports whether the track carries no samples at all.
func (t *AudioTrack) Empty() bool {
	return t == nil || len(t.Samples) == 0
}
