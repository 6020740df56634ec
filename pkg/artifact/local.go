package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local writes artifacts into a directory on disk.
type Local struct {
	dir string
}

// NewLocal creates a sink rooted at dir. The directory is created on first save.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

// Save writes the reader to dir/name, replacing an existing file. The
// content type is not recorded on disk.
func (l *Local) Save(ctx context.Context, name, _ string, r io.Reader) (string, error) {
	clean, err := SanitizeFileName(name)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	fullPath := filepath.Join(l.dir, clean)
	tmp, err := os.CreateTemp(l.dir, "."+clean+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return "", fmt.Errorf("rename: %w", err)
	}
	return fullPath, nil
}

var _ Sink = (*Local)(nil)
