package artifact

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Sink stores downloadable artifacts.
type Sink interface {
	// Save writes r under name and returns where it was stored.
	Save(ctx context.Context, name, contentType string, r io.Reader) (location string, err error)
}

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}
