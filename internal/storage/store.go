// Package storage persists community evidence uploads. The catalog core only
// sees stored file references; which backend holds the bytes is a deployment
// choice.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// MaxFileSize is the largest accepted evidence upload.
const MaxFileSize = 10 << 20 // 10MB

// ErrFileTooLarge rejects uploads over MaxFileSize.
var ErrFileTooLarge = errors.New("storage: file too large")

// StoredFile describes one persisted evidence object.
type StoredFile struct {
	Name string // Original filename as submitted.
	Key  string // Backend object key.
	URL  string // Public URL of the stored object.
	Size int64  // Size in bytes.
	Type string // MIME type as submitted.
}

// Store persists evidence files.
type Store interface {
	// Save writes one file and returns its stored reference. Size is the
	// declared length; implementations must reject sizes over MaxFileSize
	// with ErrFileTooLarge before writing.
	Save(ctx context.Context, filename, contentType string, size int64, r io.Reader) (*StoredFile, error)
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// objectKey builds a collision-free key: evidence/<ts>_<uuid>_<sanitized name>.
func objectKey(filename string) string {
	sanitized := unsafeKeyChars.ReplaceAllString(filename, "_")
	return fmt.Sprintf("evidence/%d_%s_%s", time.Now().UnixMilli(), uuid.NewString(), sanitized)
}

// checkSize enforces the upload cap.
func checkSize(size int64) error {
	if size > MaxFileSize {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}
	return nil
}
