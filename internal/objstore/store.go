// Package objstore stores uploaded binary objects and returns retrieval URLs.
package objstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store puts bytes at a key and returns a URL the object can be fetched from
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
}

// DirStore writes objects under a local directory served at BaseURL.
// Keys may contain slashes; intermediate directories are created.
type DirStore struct {
	Dir     string
	BaseURL string
}

// NewDirStore creates a directory-backed store
func NewDirStore(dir, baseURL string) *DirStore {
	return &DirStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Put writes the object and returns its public URL
func (s *DirStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	// Reject path escapes in caller-derived keys
	clean := filepath.Clean(key)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	path := filepath.Join(s.Dir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return s.BaseURL + "/" + filepath.ToSlash(clean), nil
}
