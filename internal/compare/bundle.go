package compare

import (
	"fmt"

	"github.com/himanishpuri/MediaDNA/internal/fingerprint"
	"github.com/himanishpuri/MediaDNA/internal/media"
)

const (
	// DefaultImageThreshold decides single image and frame matches.
	DefaultImageThreshold = 0.8
	// DefaultCombinedThreshold decides whether two bundles are the same content.
	DefaultCombinedThreshold = 0.9
)

// Comparator holds the calibrated thresholds.
type Comparator struct {
	ImageThreshold    float64
	CombinedThreshold float64
}

// NewComparator returns a comparator with the default thresholds.
func NewComparator() *Comparator {
	return &Comparator{
		ImageThreshold:    DefaultImageThreshold,
		CombinedThreshold: DefaultCombinedThreshold,
	}
}

// Validate rejects thresholds outside [0, 1].
func (c *Comparator) Validate() error {
	if c.ImageThreshold < 0 || c.ImageThreshold > 1 {
		return &media.ConfigError{Field: "image_threshold", Reason: "must be within [0, 1]"}
	}
	if c.CombinedThreshold < 0 || c.CombinedThreshold > 1 {
		return &media.ConfigError{Field: "combined_threshold", Reason: "must be within [0, 1]"}
	}
	return nil
}

// BundleComparison is the verdict for two fingerprint bundles. A modality
// that neither bundle carries is reported as nil and left out of the overall
// similarity.
type BundleComparison struct {
	VideoSimilarity   *float64 `json:"video_similarity"`
	AudioSimilarity   *float64 `json:"audio_similarity"`
	OverallSimilarity float64  `json:"overall_similarity"`
	IsSameContent     bool     `json:"is_same_content"`
}

// Images compares two single-image hashes against ImageThreshold.
func (c *Comparator) Images(a, b string) (Result, error) {
	return Compare(a, b, c.ImageThreshold)
}

// Bundles compares frame hashes and audio hashes modality by modality and
// averages the modalities present in at least one bundle. A modality present
// on one side only scores 0. Two bundles without any units are not the same
// content.
func (c *Comparator) Bundles(a, b *fingerprint.Bundle) (BundleComparison, error) {
	if a == nil || b == nil {
		return BundleComparison{}, fmt.Errorf("compare bundles: nil bundle")
	}

	var out BundleComparison
	var scores []float64
	if len(a.FrameHashes) > 0 || len(b.FrameHashes) > 0 {
		video, err := CompareSequences(a.FrameHashes, b.FrameHashes)
		if err != nil {
			return BundleComparison{}, fmt.Errorf("compare frame hashes: %w", err)
		}
		out.VideoSimilarity = &video
		scores = append(scores, video)
	}
	switch {
	case a.HasAudio() && b.HasAudio():
		audio, err := CompareSequences(a.Audio.Hashes, b.Audio.Hashes)
		if err != nil {
			return BundleComparison{}, fmt.Errorf("compare audio hashes: %w", err)
		}
		out.AudioSimilarity = &audio
		scores = append(scores, audio)
	case a.HasAudio() || b.HasAudio():
		zero := 0.0
		out.AudioSimilarity = &zero
		scores = append(scores, zero)
	}

	if len(scores) == 0 {
		return out, nil
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	out.OverallSimilarity = sum / float64(len(scores))
	out.IsSameContent = out.OverallSimilarity > c.CombinedThreshold
	return out, nil
}
