//go:build !js && !wasm

package decode

import (
	"context"
	"fmt"
	"os"

	"github.com/himanishpuri/MediaDNA/internal/media"
)

// Options control Open.
type Options struct {
	TempDir    string
	SampleRate int
}

// Open decodes the file at path. Still images and WAV files are decoded in
// memory; anything else is probed and handed to ffmpeg. A video without an
// audio stream yields a DecodedVideo with a nil Audio track.
func Open(ctx context.Context, path string, opts Options) (media.Input, error) {
	if media.IsImageFile(path) || media.IsWAVFile(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return media.Resolve(media.RawBytes{Name: path, Data: data})
	}

	probe, err := ProbeFile(ctx, path)
	if err != nil {
		return nil, err
	}

	var track *media.AudioTrack
	if probe.HasAudio {
		track, err = ExtractAudio(ctx, path, opts.TempDir, opts.SampleRate)
		if err != nil {
			return nil, err
		}
	}
	if !probe.HasVideo {
		return media.DecodedAudio{Track: track}, nil
	}

	src, err := NewFrameSource(path, probe)
	if err != nil {
		return nil, err
	}
	return media.DecodedVideo{Source: src, Audio: track}, nil
}
