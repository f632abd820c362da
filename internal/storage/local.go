package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes evidence files to a directory on disk. The default for
// development and single-host deployments; the directory is expected to be
// served at baseURL by the HTTP layer or a reverse proxy.
type LocalStore struct {
	dir     string // Root directory for stored objects.
	baseURL string // URL prefix mapped to dir.
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage: empty upload dir")
	}
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return nil, fmt.Errorf("storage: create upload dir: %w", errMkdir)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Dir returns the root directory holding stored objects.
func (s *LocalStore) Dir() string { return s.dir }

// Save writes one file under the store's directory.
func (s *LocalStore) Save(ctx context.Context, filename, contentType string, size int64, r io.Reader) (*StoredFile, error) {
	if errSize := checkSize(size); errSize != nil {
		return nil, errSize
	}
	if errCtx := ctx.Err(); errCtx != nil {
		return nil, errCtx
	}

	key := objectKey(filename)
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if errMkdir := os.MkdirAll(filepath.Dir(path), 0755); errMkdir != nil {
		return nil, fmt.Errorf("storage: create object dir: %w", errMkdir)
	}

	out, errCreate := os.Create(path)
	if errCreate != nil {
		return nil, fmt.Errorf("storage: create object: %w", errCreate)
	}
	written, errCopy := io.Copy(out, io.LimitReader(r, MaxFileSize+1))
	if errClose := out.Close(); errCopy == nil {
		errCopy = errClose
	}
	if errCopy != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("storage: write object: %w", errCopy)
	}
	if written > MaxFileSize {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, written)
	}

	return &StoredFile{
		Name: filename,
		Key:  key,
		URL:  s.baseURL + "/" + key,
		Size: written,
		Type: contentType,
	}, nil
}
