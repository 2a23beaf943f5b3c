package compare

import "github.com/himanishpuri/MediaDNA/internal/phash"

// Kind classifies a hash string by its shape.
type Kind string

const (
	KindImage   Kind = "image"  // 64 binary digits
	KindRobust  Kind = "robust" // 64 hex digits, a SHA-256
	KindHex64   Kind = "hex64"  // 16 hex digits, a packed 64-bit hash
	KindUnknown Kind = "unknown"
)

// IdentifyKind guesses what produced hash. Binary strings win over hex.
func IdentifyKind(hash string) Kind {
	switch {
	case len(hash) == 64 && isBinary(hash):
		return KindImage
	case len(hash) == 64 && isHex(hash):
		return KindRobust
	case len(hash) == 16 && isHex(hash):
		return KindHex64
	default:
		return KindUnknown
	}
}

func isBinary(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '1' {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// CompareHashes compares two hash strings and reports the kind of a. Two
// packed hex hashes are expanded to their bits first, so the distance counts
// differing bits over 64 rather than differing hex digits.
func CompareHashes(a, b string, threshold float64) (Kind, Result, error) {
	kind := IdentifyKind(a)
	if kind == KindHex64 && IdentifyKind(b) == KindHex64 {
		ab, err := phash.FromHex(a)
		if err != nil {
			return kind, Result{}, err
		}
		bb, err := phash.FromHex(b)
		if err != nil {
			return kind, Result{}, err
		}
		a, b = string(ab), string(bb)
	}
	r, err := Compare(a, b, threshold)
	return kind, r, err
}

// ArrayMatch is one candidate's comparison in CompareWithArray.
type ArrayMatch struct {
	Index  int    `json:"index"`
	Hash   string `json:"hash"`
	Result Result `json:"result"`
}

// ArrayResult lists the comparisons made and the first similar candidate.
type ArrayResult struct {
	Kind    Kind         `json:"kind"`
	Results []ArrayMatch `json:"results"`
	Match   *ArrayMatch  `json:"match,omitempty"`
	Skipped int          `json:"skipped"`
}

// CompareWithArray compares hash against candidates of the same kind, in
// order, and stops at the first one that is similar. Candidates of another
// kind are skipped and counted. An unknown kind is compared with any
// candidate of equal length.
func CompareWithArray(hash string, candidates []string, threshold float64) ArrayResult {
	kind := IdentifyKind(hash)
	out := ArrayResult{Kind: kind, Results: []ArrayMatch{}}
	for i, c := range candidates {
		if IdentifyKind(c) != kind || len(c) != len(hash) {
			out.Skipped++
			continue
		}
		_, r, err := CompareHashes(hash, c, threshold)
		if err != nil {
			out.Skipped++
			continue
		}
		m := ArrayMatch{Index: i, Hash: c, Result: r}
		out.Results = append(out.Results, m)
		if r.Similar {
			out.Match = &m
			break
		}
	}
	return out
}
