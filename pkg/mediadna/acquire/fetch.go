//go:build !js && !wasm

// Package acquire downloads remote media into a local temp directory.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"

	"github.com/himanishpuri/MediaDNA/pkg/utils"
)

// DefaultMaxBytes caps a plain HTTP download.
const DefaultMaxBytes = 512 << 20

// ErrTooLarge is returned when a download exceeds the configured limit.
var ErrTooLarge = errors.New("download exceeds size limit")

// Downloader fetches http(s) URLs directly and YouTube URLs through yt-dlp.
type Downloader struct {
	TempDir  string
	Client   *http.Client
	MaxBytes int64
	Timeout  time.Duration
}

// New returns a Downloader writing into tempDir.
func New(tempDir string) *Downloader {
	return &Downloader{
		TempDir:  tempDir,
		Client:   &http.Client{},
		MaxBytes: DefaultMaxBytes,
		Timeout:  3 * time.Minute,
	}
}

// Fetch downloads rawURL and returns the local path plus a cleanup func
// that removes it.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (string, func(), error) {
	if !utils.IsRemoteURL(rawURL) {
		return "", nil, fmt.Errorf("not an http(s) URL: %q", rawURL)
	}
	if _, ok := ctx.Deadline(); !ok && d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	if err := utils.MakeDir(d.TempDir); err != nil {
		return "", nil, fmt.Errorf("creating temp dir: %w", err)
	}

	var (
		p   string
		err error
	)
	if utils.IsYouTubeURL(rawURL) {
		p, err = d.fetchYouTube(ctx, rawURL)
	} else {
		p, err = d.fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return "", nil, err
	}
	return p, func() { os.Remove(p) }, nil
}

func (d *Downloader) fetchHTTP(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: unexpected status %s", rawURL, resp.Status)
	}
	limit := d.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if resp.ContentLength > limit {
		return "", fmt.Errorf("%w: %s > %s", ErrTooLarge,
			humanize.IBytes(uint64(resp.ContentLength)), humanize.IBytes(uint64(limit)))
	}

	// One extra byte tells a body of exactly limit bytes from a larger one.
	body := io.LimitReader(resp.Body, limit+1)
	p, err := utils.WriteTemp(d.TempDir, path.Ext(req.URL.Path), body)
	if err != nil {
		return "", err
	}
	if size, _ := utils.FileSize(p); size > limit {
		os.Remove(p)
		return "", fmt.Errorf("%w: more than %s", ErrTooLarge, humanize.IBytes(uint64(limit)))
	}
	return p, nil
}

func (d *Downloader) fetchYouTube(ctx context.Context, rawURL string) (string, error) {
	if _, err := utils.ExtractYouTubeID(rawURL); err != nil {
		return "", err
	}
	name := uuid.NewString()
	_, err := ytdlp.New().
		NoPlaylist().
		Format("bv*[height<=720]+ba/b[height<=720]/b").
		Output(filepath.Join(d.TempDir, name+".%(ext)s")).
		Run(ctx, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("yt-dlp download failed: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(d.TempDir, name+".*"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("downloaded file not found for %s", rawURL)
	}
	return matches[0], nil
}
