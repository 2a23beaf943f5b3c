package models

import "time"

// Media kinds.
const (
	KindVideo = "video"
	KindImage = "image"
	KindAudio = "audio"
)

// MediaRecord is a fingerprinted item kept in the library.
type MediaRecord struct {
	ID              string    `json:"id"`               // UUID
	Title           string    `json:"title"`            // caller supplied label
	Source          string    `json:"source"`           // path or URL it was read from
	Kind            string    `json:"kind"`             // video, image or audio
	DurationMs      int       `json:"duration_ms"`      // zero for still images
	FrameCount      int       `json:"frame_count"`      // number of frame hashes
	SegmentCount    int       `json:"segment_count"`    // number of audio segment hashes
	RobustVideoHash string    `json:"robust_video_hash"`
	RobustAudioHash *string   `json:"robust_audio_hash"` // nil without an audio signal
	CreatedAt       time.Time `json:"created_at"`
}

// HasAudio reports whether the record carries an audio fingerprint.
func (r *MediaRecord) HasAudio() bool { return r.RobustAudioHash != nil }

// MatchResult is one library entry ranked against a query.
type MatchResult struct {
	MediaID           string   `json:"media_id"`
	Title             string   `json:"title"`
	Source            string   `json:"source"`
	VideoSimilarity   *float64 `json:"video_similarity"`
	AudioSimilarity   *float64 `json:"audio_similarity"`
	OverallSimilarity float64  `json:"overall_similarity"`
	IsSameContent     bool     `json:"is_same_content"`
	ExactMatch        bool     `json:"exact_match"` // robust hashes are identical
}

// Stats summarises the library and the running service.
type Stats struct {
	MediaCount  int           `json:"media_count"`
	Workers     int           `json:"workers"`
	CacheHits   int64         `json:"cache_hits"`
	CacheMisses int64         `json:"cache_misses"`
	Uptime      time.Duration `json:"uptime_ns"`
}
