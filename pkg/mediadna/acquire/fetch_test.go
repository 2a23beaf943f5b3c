package acquire

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake video bytes"))
	}))
	defer srv.Close()

	d := New(t.TempDir())
	p, cleanup, err := d.Fetch(context.Background(), srv.URL+"/clips/a.mp4")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if filepath.Ext(p) != ".mp4" {
		t.Errorf("Expected .mp4 extension, got %s", p)
	}
	data, _ := os.ReadFile(p)
	if string(data) != "fake video bytes" {
		t.Errorf("Unexpected body %q", data)
	}

	cleanup()
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Error("Expected cleanup to remove the file")
	}
}

func TestFetchTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	d := New(t.TempDir())
	d.MaxBytes = 16
	_, _, err := d.Fetch(context.Background(), srv.URL+"/big.mp4")
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}
}

func TestFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, _, err := New(t.TempDir()).Fetch(context.Background(), srv.URL+"/missing.mp4")
	if err == nil {
		t.Error("Expected error for 404")
	}
}

func TestFetchRejectsLocalPath(t *testing.T) {
	if _, _, err := New(t.TempDir()).Fetch(context.Background(), "/etc/passwd"); err == nil {
		t.Error("Expected error for a local path")
	}
}
