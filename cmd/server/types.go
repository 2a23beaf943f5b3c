package main

import (
	"fmt"
	"strings"

	"github.com/himanishpuri/MediaDNA/pkg/models"
)

// MaxArrayHashes bounds the candidates accepted by POST /api/compare/array.
const MaxArrayHashes = 1000

// SourceRequest is the JSON body of the fingerprint, match and add endpoints
// when the media is given by URL instead of uploaded.
type SourceRequest struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

func (r *SourceRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

// CompareRequest is the JSON body of POST /api/compare.
type CompareRequest struct {
	URL1 string `json:"url1"`
	URL2 string `json:"url2"`
}

func (r *CompareRequest) Validate() error {
	if r.URL1 == "" || r.URL2 == "" {
		return fmt.Errorf("url1 and url2 are required")
	}
	return nil
}

// CompareHashesRequest is the body of POST /api/compare/hashes. A missing
// threshold uses the server's image threshold.
type CompareHashesRequest struct {
	Hash1     string   `json:"hash1"`
	Hash2     string   `json:"hash2"`
	Threshold *float64 `json:"threshold,omitempty"`
}

func (r *CompareHashesRequest) Validate() error {
	if r.Hash1 == "" || r.Hash2 == "" {
		return fmt.Errorf("hash1 and hash2 are required")
	}
	return nil
}

// CompareArrayRequest is the body of POST /api/compare/array.
type CompareArrayRequest struct {
	Hash      string   `json:"hash"`
	Hashes    []string `json:"hashes"`
	Threshold *float64 `json:"threshold,omitempty"`
}

func (r *CompareArrayRequest) Validate() error {
	if r.Hash == "" {
		return fmt.Errorf("hash is required")
	}
	if len(r.Hashes) == 0 {
		return fmt.Errorf("hashes cannot be empty")
	}
	if len(r.Hashes) > MaxArrayHashes {
		return fmt.Errorf("too many hashes: %d (maximum: %d)", len(r.Hashes), MaxArrayHashes)
	}
	return nil
}

// RobustHashResponse is the response of POST /api/fingerprint/robust.
type RobustHashResponse struct {
	RobustVideoHash string  `json:"robust_video_hash"`
	RobustAudioHash *string `json:"robust_audio_hash"`
}

// MatchResponse is the response of POST /api/match. Per-modality
// similarities follow the null rules of /api/compare.
type MatchResponse struct {
	Matches []models.MatchResult `json:"matches"`
	Count   int                  `json:"count"`
}

// AddMediaResponse is the response for a successful library addition.
type AddMediaResponse struct {
	Message string              `json:"message"`
	Media   *models.MediaRecord `json:"media"`
}

// ListMediaResponse is the response for GET /api/media.
type ListMediaResponse struct {
	Media []models.MediaRecord `json:"media"`
	Count int                  `json:"count"`
}

// DeleteMediaResponse is the response for DELETE /api/media/{id}.
type DeleteMediaResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MetricsResponse provides server health and library metrics.
type MetricsResponse struct {
	Status       string `json:"status"`
	DatabasePath string `json:"database_path"`
	MediaCount   int    `json:"media_count"`
	Workers      int    `json:"workers"`
	CacheHits    int64  `json:"cache_hits"`
	CacheMisses  int64  `json:"cache_misses"`
	Uptime       string `json:"uptime"`
	MaxUpload    string `json:"max_upload"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
