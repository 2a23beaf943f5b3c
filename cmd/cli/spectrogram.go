//go:build !js && !wasm

package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/MediaDNA/internal/media"
	"github.com/himanishpuri/MediaDNA/pkg/mediadna/decode"
)

// trackOf returns the audio track of a decoded input, if any.
func trackOf(in media.Input) *media.AudioTrack {
	switch v := in.(type) {
	case media.DecodedAudio:
		return v.Track
	case media.DecodedVideo:
		return v.Audio
	default:
		return nil
	}
}

// writeTrack saves track as a mono 16-bit WAV at path.
func writeTrack(path string, track *media.AudioTrack) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := media.EncodeWAV(f, track); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

// handleSpectrogram renders the audio track of a file as a PNG, to eyeball
// what the audio segment hashes are computed from.
func handleSpectrogram(args []string) {
	positional, flagArgs := splitArgs(args)
	cmd := flag.NewFlagSet("spectrogram", flag.ExitOnError)
	out := cmd.String("out", "", "Output PNG (default: <input>.png)")
	width := cmd.Int("width", 2048, "Image width in pixels")
	height := cmd.Int("height", 512, "Image height in pixels (frequency bins)")
	logScale := cmd.Bool("log", false, "Log10 magnitude scale")
	wavOut := cmd.String("wav", "", "Also save the decoded mono track as WAV")
	cmd.Parse(flagArgs)

	if len(positional) != 1 {
		fmt.Println("Usage: mediadna spectrogram <file> [--out <file.png>] [--wav <file.wav>]")
		os.Exit(1)
	}
	path := positional[0]
	if *out == "" {
		*out = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".png"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	in, err := decode.Open(ctx, path, decode.Options{TempDir: tempDir, SampleRate: sampleRate})
	if err != nil {
		fail("Failed to decode %s: %v", path, err)
	}
	track := trackOf(in)
	if track.Empty() {
		fail("%s has no audio track", path)
	}
	fmt.Printf("Read %d samples at %d Hz (%v)\n", len(track.Samples), track.SampleRate, track.Duration().Round(time.Millisecond))

	if *wavOut != "" {
		if err := writeTrack(*wavOut, track); err != nil {
			fail("Failed to save %s: %v", *wavOut, err)
		}
		fmt.Printf("✅ Saved mono track to %s\n", *wavOut)
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, *width, *height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude.
	spectrogram.Drawfft(
		img,
		track.Samples,
		uint32(track.SampleRate),
		uint32(*height),
		false,
		false,
		true,
		*logScale,
	)

	if err := spectrogram.SavePng(img, *out); err != nil {
		fail("Failed to save %s: %v", *out, err)
	}
	fmt.Printf("✅ Saved spectrogram to %s\n", *out)
}
