// Package books provides database operations for books and the composed
// listing queries shown on browse pages.
package books

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookverse/internal/database"
	"github.com/mrlokans/bookverse/internal/entities"
)

var (
	ErrTitleRequired       = fmt.Errorf("%w: title is required", database.ErrValidation)
	ErrDescriptionRequired = fmt.Errorf("%w: description is required", database.ErrValidation)
)

// BookListing is a book joined with its author and review summary. Author
// fields are empty when the author row is missing.
type BookListing struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	AuthorID       uint      `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	AuthorName     string    `json:"author_name"`
	PurchaseLink   string    `json:"purchase_link,omitempty"`
	HasDocument    bool      `json:"has_document"`
	CreatedAt      time.Time `json:"created_at"`
	AverageRating  float64   `json:"average_rating"`
	ReviewCount    int64     `json:"review_count"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func validate(book *entities.Book) error {
	book.Title = strings.TrimSpace(book.Title)
	book.Description = strings.TrimSpace(book.Description)
	if book.Title == "" {
		return ErrTitleRequired
	}
	if book.Description == "" {
		return ErrDescriptionRequired
	}
	return nil
}

// Create inserts a book after checking its required fields.
func (r *Repository) Create(book *entities.Book) error {
	if err := validate(book); err != nil {
		return err
	}
	return r.db.Omit(clause.Associations).Create(book).Error
}

// GetByID retrieves a single book.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// Update stores the editable fields of an existing book.
func (r *Repository) Update(book *entities.Book) error {
	if err := validate(book); err != nil {
		return err
	}
	res := r.db.Model(&entities.Book{}).Where("id = ?", book.ID).Updates(map[string]any{
		"title":         book.Title,
		"description":   book.Description,
		"purchase_link": book.PurchaseLink,
		"document_key":  book.DocumentKey,
		"document_type": book.DocumentType,
		"document_size": book.DocumentSize,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Delete removes a book and every row that references it: discussion
// replies, discussions, reviews, library entries, then the book itself.
// It returns the document blob key so the caller can drop the payload.
func (r *Repository) Delete(id uint) (string, error) {
	var documentKey string
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, id).Error; err != nil {
			return err
		}
		documentKey = book.DocumentKey

		if err := tx.Where("discussion_id IN (SELECT id FROM discussions WHERE book_id = ?)", id).
			Delete(&entities.Reply{}).Error; err != nil {
			return fmt.Errorf("failed to delete replies: %w", err)
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.Discussion{}).Error; err != nil {
			return fmt.Errorf("failed to delete discussions: %w", err)
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.Review{}).Error; err != nil {
			return fmt.Errorf("failed to delete reviews: %w", err)
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.LibraryEntry{}).Error; err != nil {
			return fmt.Errorf("failed to delete library entries: %w", err)
		}
		return tx.Delete(&entities.Book{}, id).Error
	})
	return documentKey, err
}

func (r *Repository) listing() *gorm.DB {
	return r.db.Table("books AS b").
		Select(`b.id, b.title, b.description, b.author_id,
			COALESCE(u.username, '') AS author_username,
			COALESCE(u.display_name, '') AS author_name,
			b.purchase_link,
			COALESCE(b.document_key, '') <> '' AS has_document,
			b.created_at,
			COALESCE((SELECT AVG(rv.rating) FROM reviews rv WHERE rv.book_id = b.id), 0) AS average_rating,
			(SELECT COUNT(*) FROM reviews rv WHERE rv.book_id = b.id) AS review_count`).
		Joins("LEFT JOIN users u ON u.id = b.author_id")
}

// ListWithAuthor returns books with author and rating summary, newest first.
func (r *Repository) ListWithAuthor(limit, offset int) ([]BookListing, error) {
	var out []BookListing
	q := r.listing().Order("b.created_at DESC, b.id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	err := q.Scan(&out).Error
	return out, err
}

// Recent returns the n newest books.
func (r *Repository) Recent(n int) ([]BookListing, error) {
	return r.ListWithAuthor(n, 0)
}

// GetListing returns the listing row for one book.
func (r *Repository) GetListing(id uint) (*BookListing, error) {
	var out []BookListing
	if err := r.listing().Where("b.id = ?", id).Limit(1).Scan(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, database.ErrNotFound
	}
	return &out[0], nil
}

// Search matches the query against title and description. An empty query
// lists every book.
func (r *Repository) Search(query string) ([]BookListing, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.ListWithAuthor(0, 0)
	}
	like := "%" + escapeLike(query) + "%"
	var out []BookListing
	err := r.listing().
		Where(`b.title LIKE ? ESCAPE '\' OR b.description LIKE ? ESCAPE '\'`, like, like).
		Order("b.title ASC").
		Scan(&out).Error
	return out, err
}

// ListByAuthor returns the books an author uploaded, newest first.
func (r *Repository) ListByAuthor(authorID uint) ([]BookListing, error) {
	var out []BookListing
	err := r.listing().Where("b.author_id = ?", authorID).Order("b.created_at DESC, b.id DESC").Scan(&out).Error
	return out, err
}

// Count returns the number of books.
func (r *Repository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&entities.Book{}).Count(&n).Error
	return n, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
