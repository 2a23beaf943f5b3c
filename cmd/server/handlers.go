package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mdobak/go-xerrors"

	"github.com/himanishpuri/MediaDNA/internal/compare"
	"github.com/himanishpuri/MediaDNA/internal/media"
	"github.com/himanishpuri/MediaDNA/pkg/logger"
	"github.com/himanishpuri/MediaDNA/pkg/mediadna"
	"github.com/himanishpuri/MediaDNA/pkg/mediadna/acquire"
	"github.com/himanishpuri/MediaDNA/pkg/models"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service mediadna.Service
	config  *ServerConfig
	log     mediadna.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	AllowedOrigins []string
	LogRequests    bool
}

// NewServer creates a new server instance
func NewServer(service mediadna.Service, config *ServerConfig) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 100 << 20
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 5 * time.Minute
	}
	return &Server{
		service: service,
		config:  config,
		log:     logger.WithComponent("http"),
	}
}

// requestError is a client mistake reported as 400.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var (
		reqErr    *requestError
		decodeErr *media.DecodeError
		cfgErr    *media.ConfigError
		mismatch  *compare.LengthMismatchError
		tooLarge  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &reqErr), errors.As(err, &cfgErr), errors.As(err, &mismatch):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge), errors.Is(err, acquire.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, mediadna.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondFailure maps err to a status code and writes it. Server-side
// failures are logged with a stack trace.
func (s *Server) respondFailure(w http.ResponseWriter, action string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		err := xerrors.New(err)
		s.log.Errorf("Failed to %s: %s", action, xerrors.Sprint(err))
		s.respondError(w, status, fmt.Sprintf("Failed to %s", action))
		return
	}
	s.log.Warnf("Failed to %s: %v", action, err)
	s.respondError(w, status, err.Error())
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.config.RequestTimeout)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("upload exceeds %s: %w", humanize.IBytes(uint64(s.config.MaxUploadBytes)), err)
		}
		return badRequest("failed to parse form data: %v", err)
	}
	return nil
}

// readFile returns the name and content of the first present form field.
func readFile(r *http.Request, fields ...string) (string, []byte, error) {
	for _, field := range fields {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return "", nil, badRequest("reading %s: %v", field, err)
		}
		data, err := readAll(file)
		if err != nil {
			return "", nil, err
		}
		return header.Filename, data, nil
	}
	return "", nil, badRequest("%s file is required", fields[0])
}

func readAll(f multipart.File) ([]byte, error) {
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return data, nil
}

func decodeJSON(r *http.Request, v interface{ Validate() error }) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	if err := v.Validate(); err != nil {
		return badRequest("%v", err)
	}
	return nil
}

// fingerprintRequest fingerprints the uploaded "file" or the JSON "url".
// It also returns the title and a source label for library additions.
func (s *Server) fingerprintRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) (*mediadna.Bundle, models.MediaRecord, error) {
	if isMultipart(r) {
		if err := s.parseForm(w, r); err != nil {
			return nil, models.MediaRecord{}, err
		}
		name, data, err := readFile(r, "file", "media")
		if err != nil {
			return nil, models.MediaRecord{}, err
		}
		b, err := s.service.FingerprintBytes(ctx, name, data)
		return b, models.MediaRecord{Title: r.FormValue("title"), Source: name}, err
	}

	var req SourceRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, models.MediaRecord{}, err
	}
	b, err := s.service.Fingerprint(ctx, req.URL)
	return b, models.MediaRecord{Title: req.Title, Source: req.URL}, err
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "MediaDNA API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":        "GET /health",
			"metrics":       "GET /api/health/metrics",
			"fingerprint":   "POST /api/fingerprint",
			"robustHash":    "POST /api/fingerprint/robust",
			"imageHash":     "POST /api/image/hash",
			"compare":       "POST /api/compare",
			"compareHashes": "POST /api/compare/hashes",
			"compareArray":  "POST /api/compare/array",
			"listMedia":     "GET /api/media",
			"addMedia":      "POST /api/media",
			"getMedia":      "GET /api/media/{id}",
			"deleteMedia":   "DELETE /api/media/{id}",
			"match":         "POST /api/match",
		},
		"notes": map[string]string{
			"similarity":  "video_similarity and audio_similarity are null when neither side carries that modality; overall_similarity averages the modalities present",
			"robustAudio": "robust_audio_hash is null and audio_hashes is empty when the media has no audio track",
			"hashKinds":   "compare endpoints accept 64-digit binary hashes or the 16-digit hex form returned by /api/image/hash",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.respondFailure(w, "retrieve metrics", err)
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		MediaCount:   stats.MediaCount,
		Workers:      stats.Workers,
		CacheHits:    stats.CacheHits,
		CacheMisses:  stats.CacheMisses,
		Uptime:       stats.Uptime.Round(time.Second).String(),
		MaxUpload:    humanize.IBytes(uint64(s.config.MaxUploadBytes)),
	})
}

// handleFingerprint handles POST /api/fingerprint
func (s *Server) handleFingerprint(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	b, _, err := s.fingerprintRequest(ctx, w, r)
	if err != nil {
		s.respondFailure(w, "fingerprint media", err)
		return
	}
	s.respondJSON(w, http.StatusOK, b)
}

// handleRobustHash handles POST /api/fingerprint/robust. Media that yields
// neither frames nor audio has no robust hash and gets 404.
func (s *Server) handleRobustHash(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	b, _, err := s.fingerprintRequest(ctx, w, r)
	if err != nil {
		s.respondFailure(w, "fingerprint media", err)
		return
	}
	if len(b.FrameHashes) == 0 && !b.HasAudio() {
		s.respondError(w, http.StatusNotFound, "No robust hash available for this media")
		return
	}

	resp := RobustHashResponse{RobustVideoHash: b.RobustVideoHash}
	if b.HasAudio() {
		resp.RobustAudioHash = &b.Audio.RobustHash
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleImageHash handles POST /api/image/hash (multipart image upload)
func (s *Server) handleImageHash(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.respondFailure(w, "hash image", err)
		return
	}
	name, data, err := readFile(r, "file", "image")
	if err != nil {
		s.respondFailure(w, "hash image", err)
		return
	}

	h, err := s.service.HashImage(name, data)
	if err != nil {
		s.respondFailure(w, "hash image", err)
		return
	}
	s.respondJSON(w, http.StatusOK, h)
}

// handleCompare handles POST /api/compare: two uploads or two URLs.
// video_similarity or audio_similarity is null when neither side has frames
// or audio respectively.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var (
		result *mediadna.Comparison
		err    error
	)
	if isMultipart(r) {
		result, err = s.compareUploads(ctx, w, r)
	} else {
		var req CompareRequest
		if err = decodeJSON(r, &req); err == nil {
			result, err = s.service.Compare(ctx, req.URL1, req.URL2)
		}
	}
	if err != nil {
		s.respondFailure(w, "compare media", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) compareUploads(ctx context.Context, w http.ResponseWriter, r *http.Request) (*mediadna.Comparison, error) {
	if err := s.parseForm(w, r); err != nil {
		return nil, err
	}
	name1, data1, err := readFile(r, "file1")
	if err != nil {
		return nil, err
	}
	name2, data2, err := readFile(r, "file2")
	if err != nil {
		return nil, err
	}

	a, err := s.service.FingerprintBytes(ctx, name1, data1)
	if err != nil {
		return nil, err
	}
	b, err := s.service.FingerprintBytes(ctx, name2, data2)
	if err != nil {
		return nil, err
	}
	return s.service.CompareBundles(a, b)
}

// handleCompareHashes handles POST /api/compare/hashes
func (s *Server) handleCompareHashes(w http.ResponseWriter, r *http.Request) {
	var req CompareHashesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondFailure(w, "compare hashes", err)
		return
	}

	result, err := s.service.CompareHashes(req.Hash1, req.Hash2, req.Threshold)
	if err != nil {
		s.respondFailure(w, "compare hashes", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleCompareArray handles POST /api/compare/array
func (s *Server) handleCompareArray(w http.ResponseWriter, r *http.Request) {
	var req CompareArrayRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondFailure(w, "compare hashes", err)
		return
	}
	if req.Threshold != nil && (*req.Threshold < 0 || *req.Threshold > 1) {
		s.respondError(w, http.StatusBadRequest, "threshold must be within [0, 1]")
		return
	}

	s.respondJSON(w, http.StatusOK, s.service.CompareWithArray(req.Hash, req.Hashes, req.Threshold))
}

// handleListMedia handles GET /api/media
func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListMedia(r.Context())
	if err != nil {
		s.respondFailure(w, "list media", err)
		return
	}
	if list == nil {
		list = []models.MediaRecord{}
	}
	s.respondJSON(w, http.StatusOK, ListMediaResponse{Media: list, Count: len(list)})
}

// handleAddMedia handles POST /api/media: an upload or a JSON URL.
func (s *Server) handleAddMedia(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var (
		rec *models.MediaRecord
		err error
	)
	if isMultipart(r) {
		var b *mediadna.Bundle
		var meta models.MediaRecord
		b, meta, err = s.fingerprintRequest(ctx, w, r)
		if err == nil {
			rec, err = s.service.AddBundle(ctx, meta, b)
		}
	} else {
		var req SourceRequest
		if err = decodeJSON(r, &req); err == nil {
			rec, err = s.service.AddMedia(ctx, req.URL, req.Title)
		}
	}
	if err != nil {
		s.respondFailure(w, "add media", err)
		return
	}

	s.log.Infof("Successfully added media: %s (ID: %s)", rec.Title, rec.ID)
	s.respondJSON(w, http.StatusCreated, AddMediaResponse{
		Message: "Media added successfully",
		Media:   rec,
	})
}

// handleGetMedia handles GET /api/media/{id}
func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.service.GetMedia(r.Context(), id)
	if err != nil {
		s.respondFailure(w, "get media "+id, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

// handleDeleteMedia handles DELETE /api/media/{id}
func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.service.DeleteMedia(r.Context(), id); err != nil {
		s.respondFailure(w, "delete media "+id, err)
		return
	}

	s.log.Infof("Deleted media: %s", id)
	s.respondJSON(w, http.StatusOK, DeleteMediaResponse{
		Message: "Media deleted successfully",
		ID:      id,
	})
}

// handleMatchMedia handles POST /api/match
func (s *Server) handleMatchMedia(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	b, _, err := s.fingerprintRequest(ctx, w, r)
	if err != nil {
		s.respondFailure(w, "match media", err)
		return
	}
	matches, err := s.service.MatchBundle(ctx, b)
	if err != nil {
		s.respondFailure(w, "match media", err)
		return
	}
	if matches == nil {
		matches = []models.MatchResult{}
	}

	s.log.Infof("Match complete: found %d matches", len(matches))
	s.respondJSON(w, http.StatusOK, MatchResponse{Matches: matches, Count: len(matches)})
}

// handleMedia routes requests to /api/media
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListMedia(w, r)
	case http.MethodPost:
		s.handleAddMedia(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleMediaItem routes requests to /api/media/{id}
func (s *Server) handleMediaItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/media/")
	if id == "" || strings.Contains(id, "/") {
		s.respondError(w, http.StatusBadRequest, "Media ID required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetMedia(w, r, id)
	case http.MethodDelete:
		s.handleDeleteMedia(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// postOnly rejects anything but POST.
func (s *Server) postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}
