package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/database/books"
	"github.com/mrlokans/bookverse/internal/entities"
	"github.com/mrlokans/bookverse/internal/storage"
)

// BookInput holds the editable fields of a book.
type BookInput struct {
	Title        string
	Description  string
	PurchaseLink string
}

// CatalogService publishes, revises and removes books together with their
// documents.
type CatalogService struct {
	books          *books.Repository
	blobs          storage.BlobStore
	maxUploadBytes int64
}

func NewCatalogService(db *gorm.DB, blobs storage.BlobStore, maxUploadBytes int64) *CatalogService {
	return &CatalogService{
		books:          books.NewRepository(db),
		blobs:          blobs,
		maxUploadBytes: maxUploadBytes,
	}
}

// Publish stores the document and creates the book owned by author. The
// document blob is removed again if the row cannot be written.
func (s *CatalogService) Publish(ctx context.Context, author *entities.User, in BookInput, doc *Upload) (*entities.Book, error) {
	if doc == nil {
		return nil, ErrDocumentRequired
	}
	if err := doc.check(s.maxUploadBytes); err != nil {
		return nil, err
	}

	book := &entities.Book{
		Title:        in.Title,
		Description:  in.Description,
		PurchaseLink: strings.TrimSpace(in.PurchaseLink),
		AuthorID:     author.ID,
	}
	// Validate before touching the blob store.
	if strings.TrimSpace(book.Title) == "" {
		return nil, books.ErrTitleRequired
	}
	if strings.TrimSpace(book.Description) == "" {
		return nil, books.ErrDescriptionRequired
	}

	key := storage.NewKey(storage.PrefixBooks)
	if err := s.blobs.Put(ctx, key, doc.Data, doc.contentType()); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	book.DocumentKey = key
	book.DocumentType = doc.contentType()
	book.DocumentSize = int64(len(doc.Data))

	if err := s.books.Create(book); err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	return book, nil
}

// Revise updates a book's fields and, when doc is non-nil, replaces its
// document. The previous document is deleted only after the row is updated.
func (s *CatalogService) Revise(ctx context.Context, book *entities.Book, in BookInput, doc *Upload) error {
	updated := *book
	updated.Title = in.Title
	updated.Description = in.Description
	updated.PurchaseLink = strings.TrimSpace(in.PurchaseLink)

	var newKey string
	if doc != nil {
		if err := doc.check(s.maxUploadBytes); err != nil {
			return err
		}
		newKey = storage.NewKey(storage.PrefixBooks)
		if err := s.blobs.Put(ctx, newKey, doc.Data, doc.contentType()); err != nil {
			return fmt.Errorf("failed to store document: %w", err)
		}
		updated.DocumentKey = newKey
		updated.DocumentType = doc.contentType()
		updated.DocumentSize = int64(len(doc.Data))
	}

	if err := s.books.Update(&updated); err != nil {
		s.discard(ctx, newKey)
		return err
	}
	if newKey != "" {
		s.discard(ctx, book.DocumentKey)
	}
	*book = updated
	return nil
}

// Remove deletes the book with its dependent rows, then its document.
func (s *CatalogService) Remove(ctx context.Context, bookID uint) error {
	key, err := s.books.Delete(bookID)
	if err != nil {
		return err
	}
	s.discard(ctx, key)
	return nil
}

// Document returns the stored document of a book.
func (s *CatalogService) Document(ctx context.Context, book *entities.Book) (*storage.Blob, error) {
	if !book.HasDocument() {
		return nil, ErrNoDocument
	}
	blob, err := s.blobs.Get(ctx, book.DocumentKey)
	if errors.Is(err, storage.ErrBlobNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrNoDocument, err)
	}
	return blob, err
}

func (s *CatalogService) discard(ctx context.Context, keys ...string) {
	if err := storage.DeleteQuietly(ctx, s.blobs, keys...); err != nil {
		log.Printf("Failed to delete blobs %v: %v", keys, err)
	}
}
