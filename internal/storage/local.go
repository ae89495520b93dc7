package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps receipts on the local filesystem, served back under
// baseURL by the HTTP layer. Used in development instead of a bucket.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (s *LocalStore) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	name = SanitizeObjectName(name)
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("save file: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

func (s *LocalStore) Delete(_ context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("url %q was not produced by this store", url)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// Dir exposes the storage directory so the router can serve it statically.
func (s *LocalStore) Dir() string {
	return s.dir
}
