//go:build !js && !wasm

// Package decode wraps ffprobe and ffmpeg to turn container files into the
// decoded inputs the fingerprint pipeline consumes.
package decode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/MediaDNA/internal/media"
)

// Probe describes the streams of a media file.
type Probe struct {
	Filename   string
	Format     string
	Duration   time.Duration
	HasVideo   bool
	Width      int
	Height     int
	FrameRate  float64
	HasAudio   bool
	SampleRate int
	Channels   int
	Title      string
}

type ffprobeOutput struct {
	Format struct {
		Filename string            `json:"filename"`
		Duration string            `json:"duration"`
		Format   string            `json:"format_name"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	Duration     string `json:"duration"`
	SampleRate   string `json:"sample_rate"`
	Channels     int    `json:"channels"`
}

func (p *ffprobeOutput) firstStream(codecType string) *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == codecType {
			return &p.Streams[i]
		}
	}
	return nil
}

// CheckFFmpeg reports whether ffmpeg and ffprobe are on PATH.
func CheckFFmpeg() error {
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%s not found in PATH: %w", tool, err)
		}
	}
	return nil
}

// ProbeFile runs ffprobe on path. Without a deadline on ctx it times out
// after ten seconds.
func ProbeFile(ctx context.Context, path string) (*Probe, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &media.DecodeError{Op: "probe", Err: err}
	}
	return parseProbe(path, out)
}

func parseProbe(path string, out []byte) (*Probe, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, &media.DecodeError{Op: "probe", Err: fmt.Errorf("parsing ffprobe json: %w", err)}
	}

	p := &Probe{
		Filename: filepath.Base(path),
		Format:   raw.Format.Format,
		Duration: parseSeconds(raw.Format.Duration),
	}
	if raw.Format.Tags != nil {
		p.Title = raw.Format.Tags["title"]
	}

	if v := raw.firstStream("video"); v != nil {
		p.HasVideo = true
		p.Width, p.Height = v.Width, v.Height
		p.FrameRate = parseRate(v.AvgFrameRate)
		if p.FrameRate <= 0 {
			p.FrameRate = parseRate(v.RFrameRate)
		}
		if p.Duration <= 0 {
			p.Duration = parseSeconds(v.Duration)
		}
	}
	if a := raw.firstStream("audio"); a != nil {
		p.HasAudio = true
		p.SampleRate, _ = strconv.Atoi(a.SampleRate)
		p.Channels = a.Channels
		if p.Duration <= 0 {
			p.Duration = parseSeconds(a.Duration)
		}
	}
	if !p.HasVideo && !p.HasAudio {
		return nil, &media.DecodeError{Op: "probe", Err: errors.New("no audio or video stream found")}
	}
	return p, nil
}

func parseSeconds(s string) time.Duration {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// parseRate parses ffprobe rationals such as "30000/1001".
func parseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
