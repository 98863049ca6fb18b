// Package storage keeps opaque binary payloads (book documents, avatars)
// behind a small key/value interface with database and MinIO backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrEmptyBlob    = errors.New("blob is empty")
	ErrBlobTooLarge = errors.New("blob exceeds the upload limit")
)

// Key prefixes group payloads by what they belong to.
const (
	PrefixBooks   = "books"
	PrefixAvatars = "avatars"
)

// Blob is a stored payload together with its metadata.
type Blob struct {
	Key         string
	ContentType string
	Size        int64
	Data        []byte
}

// BlobStore persists payloads by key. Payloads are written and returned
// verbatim.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (*Blob, error)
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh key under prefix, e.g. "books/<uuid>".
func NewKey(prefix string) string {
	return fmt.Sprintf("%s/%s", strings.Trim(prefix, "/"), uuid.NewString())
}

// CheckPayload enforces presence and the size limit. A non-positive limit
// disables the size check.
func CheckPayload(data []byte, maxBytes int64) error {
	if len(data) == 0 {
		return ErrEmptyBlob
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrBlobTooLarge, len(data), maxBytes)
	}
	return nil
}

// DeleteQuietly removes every non-blank key and returns the first error.
func DeleteQuietly(ctx context.Context, store BlobStore, keys ...string) error {
	var first error
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			continue
		}
		if err := store.Delete(ctx, key); err != nil && first == nil {
			first = err
		}
	}
	return first
}
