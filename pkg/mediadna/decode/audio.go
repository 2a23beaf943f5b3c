//go:build !js && !wasm

package decode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/MediaDNA/internal/media"
	"github.com/himanishpuri/MediaDNA/pkg/utils"
)

// DefaultSampleRate is the rate audio tracks are resampled to.
const DefaultSampleRate = 44100

// ExtractAudio converts the first audio stream of path to mono 16-bit PCM at
// sampleRate and decodes it. The intermediate WAV is removed afterwards.
func ExtractAudio(ctx context.Context, path, tempDir string, sampleRate int) (*media.AudioTrack, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
	}
	if err := utils.MakeDir(tempDir); err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	wavPath := filepath.Join(tempDir, uuid.NewString()+".wav")
	defer os.Remove(wavPath)

	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-y",
		"-v", "error",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		wavPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &media.DecodeError{Op: "audio", Err: fmt.Errorf("ffmpeg: %w (%s)", err, out)}
	}

	f, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("opening extracted audio: %w", err)
	}
	defer f.Close()
	return media.DecodeWAV(f)
}
