package media

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-audio/wav"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// SupportedVideoFormats lists the container extensions accepted for video fingerprinting.
var SupportedVideoFormats = []string{".mp4", ".avi", ".mov", ".mkv", ".flv", ".wmv", ".webm"}

// SupportedImageFormats lists the extensions the in-memory image decoder handles.
var SupportedImageFormats = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}

func extOf(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsVideoFile reports whether name carries a supported video extension.
func IsVideoFile(name string) bool {
	return slices.Contains(SupportedVideoFormats, extOf(name))
}

// IsImageFile reports whether name carries a supported image extension.
func IsImageFile(name string) bool {
	return slices.Contains(SupportedImageFormats, extOf(name))
}

// IsWAVFile reports whether name carries a .wav extension.
func IsWAVFile(name string) bool {
	return extOf(name) == ".wav"
}

// VerifyVideoFormat rejects names without an extension or with an unsupported one.
func VerifyVideoFormat(name string) error {
	ext := extOf(name)
	if ext == "" {
		return errors.New("file must have an extension")
	}
	if !IsVideoFile(name) {
		return fmt.Errorf("unsupported video format %q, supported formats are: %s",
			ext, strings.Join(SupportedVideoFormats, ", "))
	}
	return nil
}

// DecodeImage decodes a still image. Only pixel data survives decoding, so
// EXIF and other metadata never reach the hash.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, &DecodeError{Op: "image", Err: err}
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, &DecodeError{Op: "image", Err: errors.New("image has no pixels")}
	}
	return img, nil
}

// DecodeWAV reads a PCM WAV stream and returns mono samples in [-1, 1].
// Multi-channel audio is downmixed by averaging channels.
func DecodeWAV(r io.ReadSeeker) (*AudioTrack, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, &DecodeError{Op: "wav", Err: errors.New("not a valid WAV file")}
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, &DecodeError{Op: "wav", Err: err}
	}
	if buf == nil || buf.Format == nil {
		return nil, &DecodeError{Op: "wav", Err: errors.New("missing format chunk")}
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, &DecodeError{Op: "wav", Err: fmt.Errorf("invalid channel count %d", channels)}
	}
	bitDepth := int(decoder.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, &DecodeError{Op: "wav", Err: fmt.Errorf("unsupported bit depth %d", bitDepth)}
	}

	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		samples[i] = sum / float64(channels) * scale
	}

	return &AudioTrack{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// ImageFromGray wraps a raw 8-bit grayscale buffer, as produced by
// `ffmpeg -pix_fmt gray -f rawvideo`, in an image.Gray.
func ImageFromGray(width, height int, pix []byte) (*image.Gray, error) {
	if width <= 0 || height <= 0 {
		return nil, &DecodeError{Op: "frame", Err: fmt.Errorf("invalid frame size %dx%d", width, height)}
	}
	if len(pix) < width*height {
		return nil, &DecodeError{Op: "frame", Err: fmt.Errorf("short frame: got %d bytes, want %d", len(pix), width*height)}
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	copy(img.Pix, pix[:width*height])
	return img, nil
}
