package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/MediaDNA/internal/compare"
	"github.com/himanishpuri/MediaDNA/internal/media"
	"github.com/himanishpuri/MediaDNA/pkg/logger"
	"github.com/himanishpuri/MediaDNA/pkg/mediadna"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	svc, err := mediadna.NewService(
		mediadna.WithDBPath(filepath.Join(dir, "server.sqlite3")),
		mediadna.WithTempDir(filepath.Join(dir, "tmp")),
		mediadna.WithWorkers(2),
		mediadna.WithLogger(logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	srv := NewServer(svc, &ServerConfig{DBPath: "test", MaxUploadBytes: 4 << 20, AllowedOrigins: []string{"*"}})
	srv.log = logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})

	ts := httptest.NewServer(srv.setupRoutes())
	t.Cleanup(func() {
		ts.Close()
		svc.Close()
	})
	return ts
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x*5 + y)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

// postFiles sends a multipart form with the given files and fields.
func postFiles(t *testing.T, url string, files map[string][2]string, fields map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, f := range files {
		part, err := mw.CreateFormFile(field, f[0])
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write([]byte(f[1]))
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func postJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(v)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestRootDocumentsNullModalities(t *testing.T) {
	ts := setupTestServer(t)
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Notes map[string]string `json:"notes"`
	}
	decodeBody(t, resp, &body)
	if !strings.Contains(body.Notes["similarity"], "null") {
		t.Errorf("Expected the similarity note to describe null modalities, got %q", body.Notes["similarity"])
	}
}

func TestFingerprintUploadShape(t *testing.T) {
	ts := setupTestServer(t)
	resp := postFiles(t, ts.URL+"/api/fingerprint", map[string][2]string{"file": {"a.png", string(testPNG(t))}}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body map[string]json.RawMessage
	decodeBody(t, resp, &body)
	for _, key := range []string{"frame_hashes", "audio_hashes", "robust_audio_hash", "robust_video_hash"} {
		if _, ok := body[key]; !ok {
			t.Errorf("Missing key %q", key)
		}
	}
	if string(body["robust_audio_hash"]) != "null" {
		t.Errorf("Expected null robust_audio_hash, got %s", body["robust_audio_hash"])
	}
	if string(body["audio_hashes"]) != "[]" {
		t.Errorf("Expected empty audio_hashes, got %s", body["audio_hashes"])
	}
	var frames []string
	json.Unmarshal(body["frame_hashes"], &frames)
	if len(frames) != 1 || len(frames[0]) != 64 {
		t.Errorf("Expected one 64-bit frame hash, got %v", frames)
	}
}

func TestFingerprintUndecodable(t *testing.T) {
	ts := setupTestServer(t)
	resp := postFiles(t, ts.URL+"/api/fingerprint", map[string][2]string{"file": {"notes.txt", "plain text"}}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", resp.StatusCode)
	}
}

func TestFingerprintMissingURL(t *testing.T) {
	ts := setupTestServer(t)
	resp := postJSON(t, ts.URL+"/api/fingerprint", map[string]string{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := setupTestServer(t)
	resp, err := http.Get(ts.URL + "/api/fingerprint")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}

func TestImageHashEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	resp := postFiles(t, ts.URL+"/api/image/hash", map[string][2]string{"image": {"a.png", string(testPNG(t))}}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var h mediadna.ImageHash
	decodeBody(t, resp, &h)
	if len(h.Hash) != 64 || len(h.Hex) != 16 {
		t.Errorf("Unexpected hash %+v", h)
	}
}

func TestCompareHashesEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	a := strings.Repeat("0", 64)
	b := strings.Repeat("0", 56) + strings.Repeat("1", 8)

	resp := postJSON(t, ts.URL+"/api/compare/hashes", CompareHashesRequest{Hash1: a, Hash2: b})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var r struct {
		Kind       string  `json:"kind"`
		Distance   int     `json:"distance"`
		Similarity float64 `json:"similarity"`
		Similar    bool    `json:"are_similar"`
	}
	decodeBody(t, resp, &r)
	if r.Distance != 8 || r.Similarity != 0.875 || !r.Similar || r.Kind != "image" {
		t.Errorf("Unexpected result %+v", r)
	}

	resp = postJSON(t, ts.URL+"/api/compare/hashes", CompareHashesRequest{Hash1: a, Hash2: a[:10]})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for length mismatch, got %d", resp.StatusCode)
	}
}

func TestCompareArrayEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	a := strings.Repeat("01", 32)
	far := strings.Repeat("10", 32)

	resp := postJSON(t, ts.URL+"/api/compare/array", CompareArrayRequest{Hash: a, Hashes: []string{far, "abc", a, a}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var r compare.ArrayResult
	decodeBody(t, resp, &r)
	if r.Match == nil || r.Match.Index != 2 {
		t.Fatalf("Expected first match at index 2, got %+v", r.Match)
	}
	if len(r.Results) != 2 || r.Skipped != 1 {
		t.Errorf("Expected 2 comparisons and 1 skip, got %d and %d", len(r.Results), r.Skipped)
	}
}

func TestCompareUploads(t *testing.T) {
	ts := setupTestServer(t)
	img := string(testPNG(t))
	resp := postFiles(t, ts.URL+"/api/compare", map[string][2]string{
		"file1": {"a.png", img},
		"file2": {"b.png", img},
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body map[string]any
	decodeBody(t, resp, &body)
	if body["is_same_content"] != true || body["overall_similarity"] != 1.0 {
		t.Errorf("Expected identical verdict, got %v", body)
	}
	if v, ok := body["audio_similarity"]; !ok || v != nil {
		t.Errorf("Expected null audio_similarity, got %v", v)
	}
}

func TestLibraryFlow(t *testing.T) {
	ts := setupTestServer(t)
	img := string(testPNG(t))

	resp := postFiles(t, ts.URL+"/api/media", map[string][2]string{"file": {"a.png", img}}, map[string]string{"title": "Gradient"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var added AddMediaResponse
	decodeBody(t, resp, &added)
	if added.Media == nil || added.Media.Title != "Gradient" {
		t.Fatalf("Unexpected add response %+v", added)
	}

	resp, _ = http.Get(ts.URL + "/api/media")
	var list ListMediaResponse
	decodeBody(t, resp, &list)
	if list.Count != 1 {
		t.Errorf("Expected 1 entry, got %d", list.Count)
	}

	resp = postFiles(t, ts.URL+"/api/match", map[string][2]string{"file": {"q.png", img}}, nil)
	var matches MatchResponse
	decodeBody(t, resp, &matches)
	if matches.Count != 1 || !matches.Matches[0].ExactMatch {
		t.Errorf("Expected one exact match, got %+v", matches)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/media/"+added.Media.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 on delete, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(ts.URL + "/api/media/" + added.Media.ID)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&media.DecodeError{Op: "image", Err: errors.New("bad")}, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", &compare.LengthMismatchError{Left: 64, Right: 16}), http.StatusBadRequest},
		{&media.ConfigError{Field: "threshold", Reason: "range"}, http.StatusBadRequest},
		{fmt.Errorf("get: %w", mediadna.ErrNotFound), http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Errorf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
