package sampler

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/himanishpuri/MediaDNA/internal/media"
)

func makeFrames(n int) []media.Frame {
	frames := make([]media.Frame, n)
	for i := range frames {
		frames[i] = media.Frame{Image: image.NewGray(image.Rect(0, 0, 2, 2))}
	}
	return frames
}

func collectFrames(t *testing.T, vs *VideoSampler, src media.FrameSource) []media.Frame {
	t.Helper()
	var out []media.Frame
	for f, err := range vs.Frames(context.Background(), src) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, f)
	}
	return out
}

func TestNewVideoSamplerRejectsZero(t *testing.T) {
	_, err := NewVideoSampler(0)
	var cfgErr *media.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigError, got %v", err)
	}
}

func TestVideoSamplerUniformOffsets(t *testing.T) {
	src, err := NewSliceSource(10, makeFrames(10)...)
	if err != nil {
		t.Fatalf("NewSliceSource failed: %v", err)
	}
	vs, _ := NewVideoSampler(5)

	frames := collectFrames(t, vs, src)
	want := []int{0, 2, 4, 6, 8}
	if len(frames) != len(want) {
		t.Fatalf("Expected %d frames, got %d", len(want), len(frames))
	}
	for i, f := range frames {
		if f.Index != want[i] {
			t.Errorf("Frame %d: expected index %d, got %d", i, want[i], f.Index)
		}
	}
}

func TestVideoSamplerShortStream(t *testing.T) {
	src, _ := NewSliceSource(25, makeFrames(3)...)
	vs, _ := NewVideoSampler(100)

	frames := collectFrames(t, vs, src)
	if len(frames) != 3 {
		t.Fatalf("Expected 3 frames from a 3-frame stream, got %d", len(frames))
	}
	for i, f := range frames {
		if f.Index != i {
			t.Errorf("Expected index %d, got %d", i, f.Index)
		}
	}
}

func TestVideoSamplerEmptyStream(t *testing.T) {
	src, _ := NewSliceSource(25)
	vs, _ := NewVideoSampler(10)

	if frames := collectFrames(t, vs, src); len(frames) != 0 {
		t.Errorf("Expected no frames, got %d", len(frames))
	}
}

func TestVideoSamplerRestartable(t *testing.T) {
	src, _ := NewSliceSource(30, makeFrames(90)...)
	vs, _ := NewVideoSampler(7)
	seq := vs.Frames(context.Background(), src)

	var first, second []int
	for f, err := range seq {
		if err != nil {
			t.Fatal(err)
		}
		first = append(first, f.Index)
	}
	for f, err := range seq {
		if err != nil {
			t.Fatal(err)
		}
		second = append(second, f.Index)
	}
	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("Expected identical non-empty passes, got %v and %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Pass mismatch at %d: %d vs %d", i, first[i], second[i])
		}
	}
}

type failingSource struct{}

func (failingSource) Duration() time.Duration { return time.Second }
func (failingSource) FrameAt(context.Context, time.Duration) (media.Frame, error) {
	return media.Frame{}, errors.New("corrupt packet")
}

func TestVideoSamplerDecodeError(t *testing.T) {
	vs, _ := NewVideoSampler(4)
	var got error
	for _, err := range vs.Frames(context.Background(), failingSource{}) {
		got = err
	}
	var decodeErr *media.DecodeError
	if !errors.As(got, &decodeErr) {
		t.Fatalf("Expected DecodeError, got %v", got)
	}
}

// brokenFrameSource fails to decode the frame at index bad.
type brokenFrameSource struct {
	*SliceSource
	bad int
}

func (b brokenFrameSource) FrameAt(ctx context.Context, offset time.Duration) (media.Frame, error) {
	f, err := b.SliceSource.FrameAt(ctx, offset)
	if err == nil && f.Index == b.bad {
		return media.Frame{}, &media.DecodeError{Op: "frame", Err: errors.New("corrupt packet")}
	}
	return f, err
}

func TestVideoSamplerContinuesAfterFailedFrame(t *testing.T) {
	inner, _ := NewSliceSource(9, makeFrames(9)...)
	vs, _ := NewVideoSampler(9)

	var indexes []int
	failures := 0
	for f, err := range vs.Frames(context.Background(), brokenFrameSource{inner, 2}) {
		if err != nil {
			var decodeErr *media.DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("Expected DecodeError, got %v", err)
			}
			failures++
			continue
		}
		indexes = append(indexes, f.Index)
	}
	if failures != 1 {
		t.Errorf("Expected 1 failed frame, got %d", failures)
	}
	want := []int{0, 1, 3, 4, 5, 6, 7, 8}
	if len(indexes) != len(want) {
		t.Fatalf("Expected frames %v, got %v", want, indexes)
	}
	for i := range want {
		if indexes[i] != want[i] {
			t.Errorf("Expected frames %v, got %v", want, indexes)
			break
		}
	}
}

func TestVideoSamplerStopsWhenConsumerBreaks(t *testing.T) {
	inner, _ := NewSliceSource(9, makeFrames(9)...)
	vs, _ := NewVideoSampler(9)

	seen := 0
	for _, err := range vs.Frames(context.Background(), brokenFrameSource{inner, 2}) {
		seen++
		if err != nil {
			break
		}
	}
	if seen != 3 {
		t.Errorf("Expected iteration to end at the failed frame, saw %d elements", seen)
	}
}

func TestVideoSamplerCancelled(t *testing.T) {
	src, _ := NewSliceSource(10, makeFrames(10)...)
	vs, _ := NewVideoSampler(5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got error
	for _, err := range vs.Frames(ctx, src) {
		got = err
	}
	if !errors.Is(got, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", got)
	}
}

func TestSegmenterPadFinal(t *testing.T) {
	seg, err := NewSegmenter(time.Second, PadFinal)
	if err != nil {
		t.Fatalf("NewSegmenter failed: %v", err)
	}
	track := &media.AudioTrack{Samples: make([]float64, 25), SampleRate: 10}
	for i := range track.Samples {
		track.Samples[i] = 1
	}

	var segments []media.Segment
	for s := range seg.Segments(track) {
		segments = append(segments, s)
	}
	if len(segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(segments))
	}
	last := segments[2]
	if !last.Padded {
		t.Error("Expected final segment to be marked padded")
	}
	if len(last.Samples) != 10 {
		t.Errorf("Expected padded length 10, got %d", len(last.Samples))
	}
	if last.Samples[4] != 1 || last.Samples[5] != 0 {
		t.Errorf("Expected 5 samples of signal then silence, got %v", last.Samples)
	}
	if last.Start != 2*time.Second {
		t.Errorf("Expected start 2s, got %v", last.Start)
	}
	if segments[0].Padded {
		t.Error("Full segment should not be marked padded")
	}
}

func TestSegmenterDropFinal(t *testing.T) {
	seg, _ := NewSegmenter(time.Second, DropFinal)
	track := &media.AudioTrack{Samples: make([]float64, 25), SampleRate: 10}

	count := 0
	for range seg.Segments(track) {
		count++
	}
	if count != 2 {
		t.Errorf("Expected 2 segments, got %d", count)
	}
}

func TestSegmenterEmptyTrack(t *testing.T) {
	seg, _ := NewSegmenter(time.Second, PadFinal)
	for range seg.Segments(&media.AudioTrack{SampleRate: 44100}) {
		t.Fatal("Expected no segments for an empty track")
	}
	for range seg.Segments(nil) {
		t.Fatal("Expected no segments for a nil track")
	}
}

func TestSegmenterConfig(t *testing.T) {
	if _, err := NewSegmenter(0, PadFinal); err == nil {
		t.Error("Expected error for zero duration")
	}
	if _, err := NewSegmenter(-time.Second, PadFinal); err == nil {
		t.Error("Expected error for negative duration")
	}
	if _, err := ParseFinalSegmentPolicy("stretch"); err == nil {
		t.Error("Expected error for unknown policy")
	}
	if p, _ := ParseFinalSegmentPolicy("drop"); p != DropFinal {
		t.Errorf("Expected DropFinal, got %v", p)
	}
}
