//go:build !js && !wasm

package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"time"

	"github.com/himanishpuri/MediaDNA/internal/media"
)

// MaxFrameWidth caps the width of frames pulled out of ffmpeg. The hash works
// on a 32x32 thumbnail, so full resolution frames only cost memory.
const MaxFrameWidth = 512

// FFmpegFrameSource seeks into a video file with ffmpeg, one frame per call,
// and reads it back as 8-bit grayscale.
type FFmpegFrameSource struct {
	path          string
	duration      time.Duration
	fps           float64
	width, height int
	timeout       time.Duration
}

// NewFrameSource builds a frame source from a probe of path.
func NewFrameSource(path string, p *Probe) (*FFmpegFrameSource, error) {
	if p == nil || !p.HasVideo {
		return nil, &media.DecodeError{Op: "frame", Err: errors.New("no video stream")}
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, &media.DecodeError{Op: "frame", Err: fmt.Errorf("invalid frame size %dx%d", p.Width, p.Height)}
	}
	w, h := p.Width, p.Height
	if w > MaxFrameWidth {
		h = int(math.Round(float64(h) * MaxFrameWidth / float64(w)))
		w = MaxFrameWidth
	}
	// rawvideo gray needs even dimensions after scaling.
	w, h = max(2, w&^1), max(2, h&^1)

	fps := p.FrameRate
	if fps <= 0 {
		fps = 25
	}
	return &FFmpegFrameSource{
		path:     path,
		duration: p.Duration,
		fps:      fps,
		width:    w,
		height:   h,
		timeout:  30 * time.Second,
	}, nil
}

func (s *FFmpegFrameSource) Duration() time.Duration { return s.duration }

// FrameAt decodes the first frame at or after offset. ffmpeg's input-side
// seek is frame accurate, so no interpolation happens.
func (s *FFmpegFrameSource) FrameAt(ctx context.Context, offset time.Duration) (media.Frame, error) {
	if offset >= s.duration {
		return media.Frame{}, io.EOF
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-v", "error",
		"-ss", strconv.FormatFloat(offset.Seconds(), 'f', 6, 64),
		"-i", s.path,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d:flags=area", s.width, s.height),
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"-",
	)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return media.Frame{}, ctx.Err()
		}
		return media.Frame{}, &media.DecodeError{Op: "frame", Err: fmt.Errorf("ffmpeg at %v: %w", offset, err)}
	}
	if len(out) == 0 {
		return media.Frame{}, io.EOF
	}

	img, err := media.ImageFromGray(s.width, s.height, out)
	if err != nil {
		return media.Frame{}, &media.DecodeError{Op: "frame", Err: err}
	}
	index := int(math.Ceil(offset.Seconds()*s.fps - 1e-6))
	return media.Frame{
		Index:     index,
		Timestamp: time.Duration(float64(index) / s.fps * float64(time.Second)),
		Image:     img,
	}, nil
}
