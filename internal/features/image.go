package features

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"

	"github.com/himanishpuri/MediaDNA/internal/media"
)

var errEmptyImage = errors.New("image has no pixels")

// ImageExtractor derives blocks from still images and video frames.
type ImageExtractor struct {
	cfg Config
	t   *transform
}

// NewImageExtractor validates cfg and precomputes the DCT basis.
func NewImageExtractor(cfg Config) (*ImageExtractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ImageExtractor{cfg: cfg, t: newTransform(cfg)}, nil
}

// Config returns the extractor's block shape.
func (e *ImageExtractor) Config() Config { return e.cfg }

// Extract converts img to grayscale, area-averages it down to
// HashSize×HashSize, and returns the low-frequency block.
func (e *ImageExtractor) Extract(img image.Image) (Block, error) {
	if img == nil || img.Bounds().Empty() {
		return Block{}, &media.DecodeError{Op: "image", Err: errEmptyImage}
	}

	n := e.cfg.HashSize
	small := imaging.Resize(imaging.Grayscale(img), n, n, imaging.Box)

	values := make([]float64, n*n)
	for y := 0; y < n; y++ {
		row := small.Pix[y*small.Stride:]
		for x := 0; x < n; x++ {
			// Grayscale sets R=G=B; read R.
			values[y*n+x] = float64(row[x*4])
		}
	}
	return e.t.block(values), nil
}

// ExtractFrame is Extract applied to a sampled frame.
func (e *ImageExtractor) ExtractFrame(f media.Frame) (Block, error) {
	return e.Extract(f.Image)
}
