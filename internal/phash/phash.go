// Package phash encodes DCT feature blocks as perceptual hash bit strings.
package phash

import (
	"fmt"
	"image"
	"slices"
	"strings"

	"github.com/corona10/goimagehash"

	"github.com/himanishpuri/MediaDNA/internal/features"
)

// Hash is a perceptual hash: one '0' or '1' per coefficient of the block it
// was read from, row-major.
type Hash string

// Encode thresholds every coefficient of b against the median of the non-DC
// coefficients. A coefficient sets its bit only when strictly greater than
// the median, so a uniform input encodes to all zeros.
func Encode(b features.Block) Hash {
	if len(b.Coef) == 0 {
		return ""
	}
	m := median(b.Coef[1:])

	var sb strings.Builder
	sb.Grow(len(b.Coef))
	for _, c := range b.Coef {
		if c > m {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return Hash(sb.String())
}

// median of values; the mean of the two middle values for even counts.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Parse validates a bit string.
func Parse(s string) (Hash, error) {
	if s == "" {
		return "", fmt.Errorf("parse hash: empty string")
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '1' {
			return "", fmt.Errorf("parse hash: invalid character %q at position %d", s[i], i)
		}
	}
	return Hash(s), nil
}

// Len is the number of bits.
func (h Hash) Len() int { return len(h) }

// String returns the bit string.
func (h Hash) String() string { return string(h) }

// Hex renders the bits four at a time as lowercase hex. A trailing partial
// nibble is padded with zero bits.
func (h Hash) Hex() string {
	const digits = "0123456789abcdef"
	var sb strings.Builder
	for i := 0; i < len(h); i += 4 {
		var nibble byte
		for j := 0; j < 4; j++ {
			nibble <<= 1
			if i+j < len(h) && h[i+j] == '1' {
				nibble |= 1
			}
		}
		sb.WriteByte(digits[nibble])
	}
	return sb.String()
}

// FromHex expands a hex string back into a bit string of 4*len(s) bits.
func FromHex(s string) (Hash, error) {
	var sb strings.Builder
	sb.Grow(len(s) * 4)
	for i := 0; i < len(s); i++ {
		var v byte
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			v = c - '0'
		case c >= 'a' && c <= 'f':
			v = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			v = c - 'A' + 10
		default:
			return "", fmt.Errorf("parse hex hash: invalid character %q at position %d", c, i)
		}
		fmt.Fprintf(&sb, "%04b", v)
	}
	return Hash(sb.String()), nil
}

// AverageHash is the 64-bit mean-threshold hash of img. It is an auxiliary
// signal reported next to the DCT hash and never aggregated.
func AverageHash(img image.Image) (Hash, error) {
	h, err := goimagehash.AverageHash(img)
	if err != nil {
		return "", fmt.Errorf("average hash: %w", err)
	}
	return Hash(fmt.Sprintf("%064b", h.GetHash())), nil
}
