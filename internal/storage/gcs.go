package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// GCSStore stores receipts in a Google Cloud Storage bucket. It assumes
// Application Default Credentials are configured.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: bucket,
	}, nil
}

func (s *GCSStore) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	obj := s.client.Bucket(s.bucket).Object(SanitizeObjectName(name))

	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy receipt to bucket writer: %w", err)
	}
	// Close finalizes the upload; errors here mean the object was not stored.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return s.publicURL(obj.ObjectName()), nil
}

func (s *GCSStore) Delete(ctx context.Context, url string) error {
	object, ok := s.objectFromURL(url)
	if !ok {
		return fmt.Errorf("url %q does not belong to bucket %q", url, s.bucket)
	}
	if err := s.client.Bucket(s.bucket).Object(object).Delete(ctx); err != nil {
		return fmt.Errorf("delete object %q: %w", object, err)
	}
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) publicURL(object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, object)
}

func (s *GCSStore) objectFromURL(url string) (string, bool) {
	prefix := fmt.Sprintf("https://storage.googleapis.com/%s/", s.bucket)
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
