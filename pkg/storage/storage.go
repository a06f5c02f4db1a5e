// Package storage persists generated documents and returns the URL they
// are served from.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Store saves data under name and returns its public URL.
type Store interface {
	Store(ctx context.Context, name string, data []byte) (string, error)
}

// FileStore writes documents below a base directory on local disk.
type FileStore struct {
	baseDir       string
	publicBaseURL string
}

// NewFileStore creates the base directory if needed.
func NewFileStore(baseDir, publicBaseURL string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", baseDir, err)
	}
	return &FileStore{baseDir: baseDir, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Store implements Store. name may contain "/" to group files in folders,
// but may not escape the base directory.
func (s *FileStore) Store(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := path.Clean("/" + name)[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid document name %q", name)
	}

	full := filepath.Join(s.baseDir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder for %s: %w", clean, err)
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", clean, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", clean, err)
	}

	return s.publicBaseURL + "/" + clean, nil
}

// Dir returns the base directory, for serving files over HTTP.
func (s *FileStore) Dir() string {
	return s.baseDir
}
