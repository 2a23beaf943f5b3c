package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// IsRemoteURL reports whether s is an http or https URL.
func IsRemoteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsYouTubeURL reports whether s points at youtube.com or youtu.be.
func IsYouTubeURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com")
}

// ExtractYouTubeID returns the video ID of a watch, short, embed or youtu.be URL.
func ExtractYouTubeID(s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if !IsYouTubeURL(s) {
		return "", fmt.Errorf("not a YouTube URL: %s", s)
	}

	if strings.EqualFold(u.Hostname(), "youtu.be") {
		if id := strings.Trim(u.Path, "/"); id != "" {
			return id, nil
		}
		return "", fmt.Errorf("no video ID found in youtu.be URL")
	}

	if id := u.Query().Get("v"); id != "" {
		return id, nil
	}
	for _, prefix := range []string{"/embed/", "/v/", "/shorts/"} {
		if id, ok := strings.CutPrefix(u.Path, prefix); ok && id != "" {
			return strings.Trim(id, "/"), nil
		}
	}
	return "", fmt.Errorf("unable to extract video ID from URL: %s", s)
}
