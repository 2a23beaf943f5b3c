package mediadna

import (
	"github.com/himanishpuri/MediaDNA/internal/compare"
	"github.com/himanishpuri/MediaDNA/internal/fingerprint"
)

// Bundle is the fingerprint of one piece of media: per-frame hashes, an
// optional audio fingerprint and the robust digests over both.
type Bundle = fingerprint.Bundle

// Comparison is the verdict for two bundles.
type Comparison = compare.BundleComparison

// HashComparison is the result of comparing two hash strings.
type HashComparison struct {
	Kind compare.Kind `json:"kind"`
	compare.Result
}

// ImageHash describes a single still image.
type ImageHash struct {
	Hash        string `json:"hash"`         // DCT hash as binary digits
	Hex         string `json:"hex"`          // same hash packed as hex
	AverageHash string `json:"average_hash"` // mean-threshold hash, auxiliary
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}
