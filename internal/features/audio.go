package features

import (
	"errors"
	"math"

	"github.com/himanishpuri/MediaDNA/internal/media"
)

const (
	// DefaultFFTSize is the analysis window of the audio STFT in samples.
	DefaultFFTSize = 2048
	// DefaultHopSize is the STFT stride in samples.
	DefaultHopSize = 512

	logFloor = 1e-10
)

var errEmptySegment = errors.New("segment has no samples")

// AudioExtractor derives blocks from audio segments via a log-mel spectrogram.
type AudioExtractor struct {
	cfg     Config
	fftSize int
	hop     int
	window  []float64
	t       *transform
}

// NewAudioExtractor validates cfg and uses the default STFT geometry.
func NewAudioExtractor(cfg Config) (*AudioExtractor, error) {
	return NewAudioExtractorSize(cfg, DefaultFFTSize, DefaultHopSize)
}

// NewAudioExtractorSize allows a custom FFT size (a power of two) and hop.
func NewAudioExtractorSize(cfg Config, fftSize, hop int) (*AudioExtractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fftSize < 2 || fftSize&(fftSize-1) != 0 {
		return nil, &media.ConfigError{Field: "fft_size", Reason: "must be a power of two >= 2"}
	}
	if hop <= 0 {
		return nil, &media.ConfigError{Field: "hop_size", Reason: "must be positive"}
	}
	return &AudioExtractor{
		cfg:     cfg,
		fftSize: fftSize,
		hop:     hop,
		window:  hamming(fftSize),
		t:       newTransform(cfg),
	}, nil
}

// Config returns the extractor's block shape.
func (e *AudioExtractor) Config() Config { return e.cfg }

// Extract builds a HashSize-band log-mel spectrogram of seg, resamples it to
// HashSize time columns and returns its low-frequency block. Segments shorter
// than one analysis window are zero-padded.
func (e *AudioExtractor) Extract(seg media.Segment) (Block, error) {
	if len(seg.Samples) == 0 {
		return Block{}, &media.DecodeError{Op: "segment", Err: errEmptySegment}
	}
	if seg.SampleRate <= 0 {
		return Block{}, &media.ConfigError{Field: "sample_rate", Reason: "must be positive"}
	}

	samples := seg.Samples
	if len(samples) < e.fftSize {
		samples = make([]float64, e.fftSize)
		copy(samples, seg.Samples)
	}

	n := e.cfg.HashSize
	spectra := powerSTFT(samples, e.fftSize, e.hop, e.window)
	bank := melFilterBank(n, e.fftSize, seg.SampleRate)

	values := make([]float64, n*n)
	band := make([]float64, len(spectra))
	for m, filter := range bank {
		for t, power := range spectra {
			var energy float64
			for k, w := range filter {
				if w != 0 {
					energy += w * power[k]
				}
			}
			band[t] = math.Log(math.Max(energy, logFloor))
		}
		copy(values[m*n:(m+1)*n], areaResample(band, n))
	}
	return e.t.block(values), nil
}
