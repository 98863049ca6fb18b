// Package services coordinates writes that span the relational store and the
// blob store: publishing and removing books, profile avatars and account
// deletion.
package services

import (
	"fmt"
	"strings"

	"github.com/mrlokans/bookverse/internal/database"
	"github.com/mrlokans/bookverse/internal/storage"
)

var (
	ErrDocumentRequired   = fmt.Errorf("%w: a book document is required", database.ErrValidation)
	ErrNoDocument         = fmt.Errorf("%w: book has no document", database.ErrNotFound)
	ErrNoAvatar           = fmt.Errorf("%w: user has no avatar", database.ErrNotFound)
	ErrDisplayNameTooLong = database.Invalid("display name must be at most %d characters", MaxDisplayNameLength)
)

const MaxDisplayNameLength = 100

const defaultContentType = "application/octet-stream"

// Upload is an uploaded payload as received from a client. The bytes are
// stored verbatim.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (u *Upload) contentType() string {
	if ct := strings.TrimSpace(u.ContentType); ct != "" {
		return ct
	}
	return defaultContentType
}

// check rejects empty and oversized payloads as validation errors.
func (u *Upload) check(maxBytes int64) error {
	if err := storage.CheckPayload(u.Data, maxBytes); err != nil {
		return fmt.Errorf("%w: %v", database.ErrValidation, err)
	}
	return nil
}
