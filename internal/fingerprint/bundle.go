package fingerprint

import (
	"encoding/json"

	"github.com/himanishpuri/MediaDNA/internal/phash"
)

// AudioFingerprint holds the per-segment hashes of an audio track.
type AudioFingerprint struct {
	Hashes     []phash.Hash
	RobustHash string
}

// Bundle is the fingerprint of one piece of media. Audio is nil when the
// media carries no audio signal; that is a valid result, not an error.
type Bundle struct {
	FrameHashes     []phash.Hash
	RobustVideoHash string
	Audio           *AudioFingerprint

	// Units dropped in lenient mode.
	SkippedFrames   int
	SkippedSegments int
}

// NewBundle aggregates frame hashes and, when audio is non-nil, segment hashes.
func NewBundle(frames []phash.Hash, audio []phash.Hash, hasAudio bool) *Bundle {
	b := &Bundle{
		FrameHashes:     nonNil(frames),
		RobustVideoHash: RobustHash(frames),
	}
	if hasAudio {
		b.Audio = &AudioFingerprint{Hashes: nonNil(audio), RobustHash: RobustHash(audio)}
	}
	return b
}

// HasAudio reports whether the bundle carries an audio fingerprint.
func (b *Bundle) HasAudio() bool { return b != nil && b.Audio != nil }

// AudioHashes returns the segment hashes, or nil without audio.
func (b *Bundle) AudioHashes() []phash.Hash {
	if !b.HasAudio() {
		return nil
	}
	return b.Audio.Hashes
}

type bundleJSON struct {
	FrameHashes     []phash.Hash `json:"frame_hashes"`
	AudioHashes     []phash.Hash `json:"audio_hashes"`
	RobustAudioHash *string      `json:"robust_audio_hash"`
	RobustVideoHash string       `json:"robust_video_hash"`
	SkippedFrames   int          `json:"skipped_frames,omitempty"`
	SkippedSegments int          `json:"skipped_segments,omitempty"`
}

// MarshalJSON emits robust_audio_hash as null when there is no audio.
func (b Bundle) MarshalJSON() ([]byte, error) {
	out := bundleJSON{
		FrameHashes:     nonNil(b.FrameHashes),
		AudioHashes:     []phash.Hash{},
		RobustVideoHash: b.RobustVideoHash,
		SkippedFrames:   b.SkippedFrames,
		SkippedSegments: b.SkippedSegments,
	}
	if b.Audio != nil {
		out.AudioHashes = nonNil(b.Audio.Hashes)
		out.RobustAudioHash = &b.Audio.RobustHash
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores Audio from robust_audio_hash being non-null.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	var in bundleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*b = Bundle{
		FrameHashes:     nonNil(in.FrameHashes),
		RobustVideoHash: in.RobustVideoHash,
		SkippedFrames:   in.SkippedFrames,
		SkippedSegments: in.SkippedSegments,
	}
	if in.RobustAudioHash != nil {
		b.Audio = &AudioFingerprint{Hashes: nonNil(in.AudioHashes), RobustHash: *in.RobustAudioHash}
	}
	return nil
}

func nonNil(h []phash.Hash) []phash.Hash {
	if h == nil {
		return []phash.Hash{}
	}
	return h
}
