package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore persists evidence files in a Google Cloud Storage bucket.
type GCSStore struct {
	client    *storage.Client
	bucket    string
	cdnDomain string // Optional domain fronting the bucket.
}

// NewGCSStore opens a storage client scoped to read/write on one bucket.
func NewGCSStore(ctx context.Context, bucket, cdnDomain string) (*GCSStore, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("storage: empty bucket name")
	}
	client, errClient := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	if errClient != nil {
		return nil, fmt.Errorf("storage: create gcs client: %w", errClient)
	}
	return &GCSStore{client: client, bucket: bucket, cdnDomain: cdnDomain}, nil
}

// Save uploads one object with a bounded deadline.
func (s *GCSStore) Save(ctx context.Context, filename, contentType string, size int64, r io.Reader) (*StoredFile, error) {
	if errSize := checkSize(size); errSize != nil {
		return nil, errSize
	}

	key := objectKey(filename)
	writeCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(writeCtx)
	if contentType != "" {
		w.ContentType = contentType
	}
	written, errCopy := io.Copy(w, r)
	if errCopy != nil {
		_ = w.Close()
		return nil, fmt.Errorf("storage: write gcs object: %w", errCopy)
	}
	if errClose := w.Close(); errClose != nil {
		return nil, fmt.Errorf("storage: close gcs writer: %w", errClose)
	}

	return &StoredFile{
		Name: filename,
		Key:  key,
		URL:  s.publicURL(key),
		Size: written,
		Type: contentType,
	}, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// publicURL derives the object's public address, preferring the CDN domain.
func (s *GCSStore) publicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", strings.TrimSuffix(s.cdnDomain, "/"), key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}
