// Package features turns a decoded image or audio segment into the
// low-frequency DCT block that a perceptual hash is read from.
package features

import (
	"fmt"

	"github.com/himanishpuri/MediaDNA/internal/media"
)

const (
	// DefaultHashSize is the side of the square matrix the DCT runs on.
	DefaultHashSize = 32
	// DefaultWindow is the side of the low-frequency block kept after the DCT.
	DefaultWindow = 8
)

// Config controls the shape of extracted blocks.
type Config struct {
	HashSize int `json:"hash_size"`
	Window   int `json:"window"`
}

// DefaultConfig returns the 32x32 transform with an 8x8 window (64-bit hashes).
func DefaultConfig() Config {
	return Config{HashSize: DefaultHashSize, Window: DefaultWindow}
}

// Validate rejects shapes that cannot produce a block.
func (c Config) Validate() error {
	switch {
	case c.HashSize <= 0:
		return &media.ConfigError{Field: "hash_size", Reason: "must be positive"}
	case c.Window <= 0:
		return &media.ConfigError{Field: "window", Reason: "must be positive"}
	case c.Window > c.HashSize:
		return &media.ConfigError{
			Field:  "window",
			Reason: fmt.Sprintf("must not exceed hash_size (%d > %d)", c.Window, c.HashSize),
		}
	}
	return nil
}

// Bits is the length of a hash produced under this config.
func (c Config) Bits() int {
	return c.Window * c.Window
}
