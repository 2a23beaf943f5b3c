package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"net/http"
	"strings"
	"time"
)

// ErrUnsupportedContainer is wrapped in a DecodeError when raw bytes hold a
// container (mp4, mkv, ...) that must be demuxed by an external decoder.
var ErrUnsupportedContainer = errors.New("container requires external decoding")

// FrameSource is a decoded video stream that can be sought by time.
type FrameSource interface {
	// Duration is the playing time of the stream. Zero means empty.
	Duration() time.Duration
	// FrameAt returns the first frame presented at or after offset. It returns
	// io.EOF when no frame exists past offset.
	FrameAt(ctx context.Context, offset time.Duration) (Frame, error)
}

// Input is the closed set of shapes media can arrive in. It is resolved once,
// at the sampler boundary, so extraction always sees decoded units.
type Input interface {
	isInput()
}

// RawBytes is an undecoded buffer, e.g. an upload.
type RawBytes struct {
	Name string // optional original file name, used for sniffing
	Data []byte
}

// DecodedImage is a still image.
type DecodedImage struct {
	Image image.Image
}

// DecodedVideo is a seekable frame stream with an optional audio track.
type DecodedVideo struct {
	Source FrameSource
	Audio  *AudioTrack // nil when the container has no audio stream
}

// DecodedAudio is an audio-only stream.
type DecodedAudio struct {
	Track *AudioTrack
}

func (RawBytes) isInput()     {}
func (DecodedImage) isInput() {}
func (DecodedVideo) isInput() {}
func (DecodedAudio) isInput() {}

// Resolve turns raw bytes into a decoded input when that can be done in
// memory (still images and WAV). Decoded inputs are returned unchanged.
// Containers yield a DecodeError wrapping ErrUnsupportedContainer.
func Resolve(in Input) (Input, error) {
	raw, ok := in.(RawBytes)
	if !ok {
		return in, nil
	}
	if len(raw.Data) == 0 {
		return nil, &DecodeError{Op: "sniff", Err: errors.New("empty input")}
	}

	contentType := http.DetectContentType(raw.Data)
	switch {
	case strings.HasPrefix(contentType, "image/") || IsImageFile(raw.Name):
		img, err := DecodeImage(bytes.NewReader(raw.Data))
		if err != nil {
			return nil, err
		}
		return DecodedImage{Image: img}, nil
	case contentType == "audio/wave" || IsWAVFile(raw.Name):
		track, err := DecodeWAV(bytes.NewReader(raw.Data))
		if err != nil {
			return nil, err
		}
		return DecodedAudio{Track: track}, nil
	default:
		return nil, &DecodeError{Op: "sniff", Err: ErrUnsupportedContainer}
	}
}
