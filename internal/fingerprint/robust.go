// Package fingerprint runs the per-unit hashing pipeline and aggregates the
// results into fingerprint bundles.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/himanishpuri/MediaDNA/internal/phash"
)

// EmptyRobustHash is the robust hash of a source with no units: the SHA-256
// of the empty string.
const EmptyRobustHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// RobustHash digests the per-unit hashes in order. Reordering the units
// changes the result.
func RobustHash(hashes []phash.Hash) string {
	h := sha256.New()
	for _, u := range hashes {
		h.Write([]byte(u))
	}
	return hex.EncodeToString(h.Sum(nil))
}
