package fingerprint

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/himanishpuri/MediaDNA/internal/media"
	"github.com/himanishpuri/MediaDNA/internal/phash"
	"github.com/himanishpuri/MediaDNA/internal/sampler"
)

func setupTestPipeline(t *testing.T, mutate func(*Config)) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 4
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return p
}

// stripes draws vertical bars whose width depends on seed, so each frame
// hashes differently.
func stripes(seed int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 64, 48))
	period := 4 + seed*3
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(0)
			if ((x+y*seed)/period)%2 == 0 {
				v = 220
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func testVideo(t *testing.T, n int) *sampler.SliceSource {
	t.Helper()
	frames := make([]media.Frame, n)
	for i := range frames {
		frames[i] = media.Frame{Image: stripes(i%7 + 1)}
	}
	src, err := sampler.NewSliceSource(10, frames...)
	if err != nil {
		t.Fatalf("NewSliceSource failed: %v", err)
	}
	return src
}

func testTrack(seconds float64) *media.AudioTrack {
	const rate = 8000
	samples := make([]float64, int(seconds*rate))
	for i := range samples {
		samples[i] = 0.4*math.Sin(2*math.Pi*300*float64(i)/rate) + 0.2*math.Sin(2*math.Pi*1200*float64(i)/rate*float64(1+i/rate))
	}
	return &media.AudioTrack{Samples: samples, SampleRate: rate}
}

func TestRobustHashEmpty(t *testing.T) {
	if got := RobustHash(nil); got != EmptyRobustHash {
		t.Errorf("Expected digest of empty string, got %s", got)
	}
}

func TestRobustHashOrderSensitive(t *testing.T) {
	a := phash.Hash(strings.Repeat("01", 32))
	b := phash.Hash(strings.Repeat("10", 32))
	if RobustHash([]phash.Hash{a, b}) == RobustHash([]phash.Hash{b, a}) {
		t.Error("Expected swapping units to change the robust hash")
	}
	if got := RobustHash([]phash.Hash{a, b}); len(got) != 64 {
		t.Errorf("Expected 64 hex characters, got %d", len(got))
	}
}

func TestNewPipelineConfigErrors(t *testing.T) {
	tests := []func(*Config){
		func(c *Config) { c.MaxFrames = 0 },
		func(c *Config) { c.SegmentDuration = 0 },
		func(c *Config) { c.Features.Window = 64 },
		func(c *Config) { c.Mode = Mode(9) },
	}
	for i, mutate := range tests {
		cfg := DefaultConfig()
		mutate(&cfg)
		_, err := NewPipeline(cfg)
		var cfgErr *media.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("case %d: expected ConfigError, got %v", i, err)
		}
	}
}

func TestHashFramesPreservesOrder(t *testing.T) {
	src := testVideo(t, 40)
	serial := setupTestPipeline(t, func(c *Config) { c.Workers = 1; c.MaxFrames = 20 })
	parallel := setupTestPipeline(t, func(c *Config) { c.Workers = 8; c.MaxFrames = 20 })

	want, _, err := serial.HashFrames(context.Background(), src)
	if err != nil {
		t.Fatalf("serial HashFrames failed: %v", err)
	}
	for run := 0; run < 5; run++ {
		got, _, err := parallel.HashFrames(context.Background(), src)
		if err != nil {
			t.Fatalf("parallel HashFrames failed: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("Expected %d hashes, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("run %d: hash %d out of order", run, i)
			}
		}
	}
}

func TestFingerprintVideoWithAudio(t *testing.T) {
	p := setupTestPipeline(t, func(c *Config) { c.MaxFrames = 10 })
	b, err := p.Fingerprint(context.Background(), testVideo(t, 30), testTrack(2.5))
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if len(b.FrameHashes) != 10 {
		t.Errorf("Expected 10 frame hashes, got %d", len(b.FrameHashes))
	}
	if !b.HasAudio() {
		t.Fatal("Expected audio fingerprint")
	}
	if len(b.Audio.Hashes) != 3 {
		t.Errorf("Expected 3 padded segments, got %d", len(b.Audio.Hashes))
	}
	for _, h := range append(b.FrameHashes, b.Audio.Hashes...) {
		if h.Len() != 64 {
			t.Errorf("Expected 64-bit hash, got %d", h.Len())
		}
	}
	if b.RobustVideoHash != RobustHash(b.FrameHashes) {
		t.Error("Robust video hash does not match frame hashes")
	}
	if b.Audio.RobustHash != RobustHash(b.Audio.Hashes) {
		t.Error("Robust audio hash does not match segment hashes")
	}
}

func TestFingerprintNoAudio(t *testing.T) {
	p := setupTestPipeline(t, nil)
	b, err := p.Fingerprint(context.Background(), testVideo(t, 5), nil)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if b.HasAudio() {
		t.Error("Expected no audio signal")
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if v, ok := raw["robust_audio_hash"]; !ok || v != nil {
		t.Errorf("Expected robust_audio_hash null, got %v", v)
	}
	if hashes, ok := raw["audio_hashes"].([]any); !ok || len(hashes) != 0 {
		t.Errorf("Expected empty audio_hashes array, got %v", raw["audio_hashes"])
	}

	var back Bundle
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal bundle failed: %v", err)
	}
	if back.HasAudio() || back.RobustVideoHash != b.RobustVideoHash {
		t.Errorf("Bundle did not survive JSON: %+v", back)
	}
}

func TestFingerprintEmptySource(t *testing.T) {
	p := setupTestPipeline(t, nil)
	empty, _ := sampler.NewSliceSource(25)

	b, err := p.Fingerprint(context.Background(), empty, &media.AudioTrack{SampleRate: 8000})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if len(b.FrameHashes) != 0 {
		t.Errorf("Expected no frame hashes, got %d", len(b.FrameHashes))
	}
	if b.RobustVideoHash != EmptyRobustHash {
		t.Errorf("Expected empty-string digest, got %s", b.RobustVideoHash)
	}
	if b.HasAudio() {
		t.Error("Expected empty track to mean no audio")
	}
}

func TestFingerprintInputImage(t *testing.T) {
	p := setupTestPipeline(t, nil)
	b, err := p.FingerprintInput(context.Background(), media.DecodedImage{Image: stripes(3)})
	if err != nil {
		t.Fatalf("FingerprintInput failed: %v", err)
	}
	want, _ := p.HashImage(stripes(3))
	if len(b.FrameHashes) != 1 || b.FrameHashes[0] != want {
		t.Errorf("Expected single frame hash %s, got %v", want, b.FrameHashes)
	}

	_, err = p.FingerprintInput(context.Background(), media.RawBytes{Name: "a.mkv", Data: []byte{0x1a, 0x45, 0xdf, 0xa3, 1, 2}})
	if !errors.Is(err, media.ErrUnsupportedContainer) {
		t.Errorf("Expected ErrUnsupportedContainer, got %v", err)
	}
}

func TestFingerprintAudioOnly(t *testing.T) {
	p := setupTestPipeline(t, nil)
	b, err := p.FingerprintInput(context.Background(), media.DecodedAudio{Track: testTrack(2)})
	if err != nil {
		t.Fatalf("FingerprintInput failed: %v", err)
	}
	if len(b.FrameHashes) != 0 || !b.HasAudio() || len(b.Audio.Hashes) != 2 {
		t.Errorf("Expected audio-only bundle with 2 segments, got %+v", b)
	}
}

// flakySource fails to decode every third frame.
type flakySource struct {
	*sampler.SliceSource
}

func (f flakySource) FrameAt(ctx context.Context, offset time.Duration) (media.Frame, error) {
	frame, err := f.SliceSource.FrameAt(ctx, offset)
	if err == nil && frame.Index%3 == 2 {
		frame.Image = image.NewGray(image.Rect(0, 0, 0, 0))
	}
	return frame, err
}

func TestLenientSkipsFailedFrames(t *testing.T) {
	src := flakySource{testVideo(t, 9)}

	strict := setupTestPipeline(t, func(c *Config) { c.MaxFrames = 9 })
	_, _, err := strict.HashFrames(context.Background(), src)
	var decodeErr *media.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected strict mode to fail with DecodeError, got %v", err)
	}

	lenient := setupTestPipeline(t, func(c *Config) { c.MaxFrames = 9; c.Mode = Lenient })
	b, err := lenient.Fingerprint(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Expected lenient mode to succeed, got %v", err)
	}
	if b.SkippedFrames != 3 {
		t.Errorf("Expected 3 skipped frames, got %d", b.SkippedFrames)
	}
	if len(b.FrameHashes) != 6 {
		t.Errorf("Expected 6 frame hashes, got %d", len(b.FrameHashes))
	}
}

// seekFailSource cannot decode the frame at index bad.
type seekFailSource struct {
	*sampler.SliceSource
	bad int
}

func (s seekFailSource) FrameAt(ctx context.Context, offset time.Duration) (media.Frame, error) {
	frame, err := s.SliceSource.FrameAt(ctx, offset)
	if err == nil && frame.Index == s.bad {
		return media.Frame{}, &media.DecodeError{Op: "frame", Err: errors.New("corrupt packet")}
	}
	return frame, err
}

func TestLenientSkipsUndecodableFrames(t *testing.T) {
	src := seekFailSource{testVideo(t, 9), 2}

	strict := setupTestPipeline(t, func(c *Config) { c.MaxFrames = 9 })
	if _, _, err := strict.HashFrames(context.Background(), src); err == nil {
		t.Fatal("Expected strict mode to fail on the undecodable frame")
	}

	lenient := setupTestPipeline(t, func(c *Config) { c.MaxFrames = 9; c.Mode = Lenient })
	hashes, skipped, err := lenient.HashFrames(context.Background(), src)
	if err != nil {
		t.Fatalf("Expected lenient mode to succeed, got %v", err)
	}
	if skipped != 1 {
		t.Errorf("Expected 1 skipped frame, got %d", skipped)
	}
	if len(hashes) != 8 {
		t.Fatalf("Expected 8 frame hashes, got %d", len(hashes))
	}

	// The frames after the failure are hashed in order.
	full, _, err := lenient.HashFrames(context.Background(), testVideo(t, 9))
	if err != nil {
		t.Fatalf("HashFrames failed: %v", err)
	}
	want := append(append([]phash.Hash{}, full[:2]...), full[3:]...)
	for i := range want {
		if hashes[i] != want[i] {
			t.Errorf("Hash %d differs from the clean run", i)
		}
	}
}

func TestFingerprintCancelled(t *testing.T) {
	p := setupTestPipeline(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Fingerprint(ctx, testVideo(t, 20), testTrack(1))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
