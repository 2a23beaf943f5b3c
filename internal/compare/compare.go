// Package compare measures similarity between perceptual hashes, robust
// hashes and whole fingerprint bundles.
package compare

import (
	"fmt"

	"github.com/himanishpuri/MediaDNA/internal/phash"
)

// LengthMismatchError is returned when two hashes of different lengths are
// compared. Hashes are never truncated or padded to fit.
type LengthMismatchError struct {
	Left  int
	Right int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("hash length mismatch: %d vs %d", e.Left, e.Right)
}

// Result is the outcome of comparing two hashes.
type Result struct {
	Distance   int     `json:"distance"`
	Length     int     `json:"length"`
	Similarity float64 `json:"similarity"`
	Similar    bool    `json:"are_similar"`
}

// Hamming counts the positions at which a and b differ.
func Hamming(a, b string) (int, error) {
	if len(a) != len(b) {
		return 0, &LengthMismatchError{Left: len(a), Right: len(b)}
	}
	d := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			d++
		}
	}
	return d, nil
}

// Compare computes similarity 1 - d/L and the verdict similarity > threshold.
// Two empty strings are identical.
func Compare(a, b string, threshold float64) (Result, error) {
	d, err := Hamming(a, b)
	if err != nil {
		return Result{}, err
	}
	sim := similarity(d, len(a))
	return Result{Distance: d, Length: len(a), Similarity: sim, Similar: sim > threshold}, nil
}

func similarity(d, length int) float64 {
	if length == 0 {
		return 1
	}
	return 1 - float64(d)/float64(length)
}

// CompareSequences aligns two hash sequences by index and averages the
// per-unit similarity over the longer sequence; units without a partner
// count as 0. Two empty sequences are identical.
func CompareSequences(a, b []phash.Hash) (float64, error) {
	n := max(len(a), len(b))
	if n == 0 {
		return 1, nil
	}
	var sum float64
	for i := 0; i < min(len(a), len(b)); i++ {
		d, err := Hamming(string(a[i]), string(b[i]))
		if err != nil {
			return 0, fmt.Errorf("unit %d: %w", i, err)
		}
		sum += similarity(d, len(a[i]))
	}
	return sum / float64(n), nil
}
