package decode

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/himanishpuri/MediaDNA/internal/media"
	"github.com/himanishpuri/MediaDNA/internal/sampler"
)

const probeJSON = `{
  "streams": [
    {"codec_type": "video", "width": 1920, "height": 1080, "avg_frame_rate": "30000/1001", "r_frame_rate": "30/1"},
    {"codec_type": "audio", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"filename": "clip.mp4", "duration": "12.500000", "format_name": "mov,mp4,m4a", "tags": {"title": "Demo"}}
}`

func TestParseProbe(t *testing.T) {
	p, err := parseProbe("/tmp/clip.mp4", []byte(probeJSON))
	if err != nil {
		t.Fatalf("parseProbe failed: %v", err)
	}
	if !p.HasVideo || !p.HasAudio {
		t.Errorf("Expected video and audio streams, got %+v", p)
	}
	if p.Duration != 12500*time.Millisecond {
		t.Errorf("Expected 12.5s, got %v", p.Duration)
	}
	if p.FrameRate < 29.96 || p.FrameRate > 29.98 {
		t.Errorf("Expected ~29.97 fps, got %f", p.FrameRate)
	}
	if p.SampleRate != 48000 || p.Title != "Demo" || p.Filename != "clip.mp4" {
		t.Errorf("Unexpected probe: %+v", p)
	}
}

func TestParseProbeNoStreams(t *testing.T) {
	_, err := parseProbe("x", []byte(`{"streams": [], "format": {}}`))
	var decodeErr *media.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Errorf("Expected DecodeError, got %v", err)
	}
	if _, err := parseProbe("x", []byte("not json")); err == nil {
		t.Error("Expected error for invalid json")
	}
}

func TestParseRate(t *testing.T) {
	tests := map[string]float64{"25/1": 25, "30000/1001": 30000.0 / 1001, "24": 24, "0/0": 0, "": 0}
	for in, want := range tests {
		if got := parseRate(in); got != want {
			t.Errorf("parseRate(%q) = %f, want %f", in, got, want)
		}
	}
}

func TestNewFrameSourceScalesDown(t *testing.T) {
	p, _ := parseProbe("clip.mp4", []byte(probeJSON))
	src, err := NewFrameSource("clip.mp4", p)
	if err != nil {
		t.Fatalf("NewFrameSource failed: %v", err)
	}
	if src.width != MaxFrameWidth || src.height != 288 {
		t.Errorf("Expected 512x288, got %dx%d", src.width, src.height)
	}
	if _, err := NewFrameSource("a.wav", &Probe{HasAudio: true}); err == nil {
		t.Error("Expected error without a video stream")
	}
}

func TestFrameAtPastEnd(t *testing.T) {
	src := &FFmpegFrameSource{path: "missing.mp4", duration: time.Second, fps: 25, width: 2, height: 2}
	if _, err := src.FrameAt(context.Background(), 2*time.Second); err == nil {
		t.Error("Expected io.EOF past the end of the stream")
	}
}

// makeTestVideo renders a 2 second test pattern with a sine tone.
func makeTestVideo(t *testing.T) string {
	t.Helper()
	if err := CheckFFmpeg(); err != nil {
		t.Skipf("ffmpeg not available: %v", err)
	}
	path := filepath.Join(t.TempDir(), "pattern.mp4")
	cmd := exec.Command("ffmpeg", "-y", "-v", "error",
		"-f", "lavfi", "-i", "testsrc=duration=2:size=160x120:rate=10",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=2",
		"-shortest", "-pix_fmt", "yuv420p", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not render test video: %v (%s)", err, out)
	}
	return path
}

func TestOpenVideo(t *testing.T) {
	path := makeTestVideo(t)
	in, err := Open(context.Background(), path, Options{TempDir: t.TempDir(), SampleRate: 8000})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	video, ok := in.(media.DecodedVideo)
	if !ok {
		t.Fatalf("Expected DecodedVideo, got %T", in)
	}
	if video.Audio.Empty() || video.Audio.SampleRate != 8000 {
		t.Errorf("Expected 8 kHz audio track, got %+v", video.Audio)
	}

	vs, _ := sampler.NewVideoSampler(5)
	count := 0
	for frame, err := range vs.Frames(context.Background(), video.Source) {
		if err != nil {
			t.Fatalf("frame error: %v", err)
		}
		if frame.Image.Bounds().Dx() != 160 {
			t.Errorf("Expected width 160, got %d", frame.Image.Bounds().Dx())
		}
		count++
	}
	if count != 5 {
		t.Errorf("Expected 5 sampled frames, got %d", count)
	}
}
