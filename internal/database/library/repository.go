// Package library stores each user's saved books and when they were last
// opened.
package library

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookverse/internal/database"
	"github.com/mrlokans/bookverse/internal/entities"
)

// LibraryItem is a library entry joined with its book and the book's author.
type LibraryItem struct {
	BookID         uint       `json:"book_id"`
	Title          string     `json:"title"`
	AuthorID       uint       `json:"author_id"`
	AuthorUsername string     `json:"author_username"`
	AuthorName     string     `json:"author_name"`
	AddedAt        time.Time  `json:"added_at"`
	LastRead       *time.Time `json:"last_read,omitempty"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Add saves a book to the user's library. Adding twice is a no-op.
func (r *Repository) Add(userID, bookID uint, at time.Time) error {
	entry := entities.LibraryEntry{UserID: userID, BookID: bookID, AddedAt: at.UTC()}
	return r.db.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry).Error
}

// Remove drops a book from the library and reports whether it was there.
func (r *Repository) Remove(userID, bookID uint) (bool, error) {
	res := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).Delete(&entities.LibraryEntry{})
	return res.RowsAffected > 0, res.Error
}

// Has reports whether the book is in the user's library.
func (r *Repository) Has(userID, bookID uint) (bool, error) {
	var n int64
	err := r.db.Model(&entities.LibraryEntry{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&n).Error
	return n > 0, err
}

// Get returns the entry for (user, book), or database.ErrNotFound.
func (r *Repository) Get(userID, bookID uint) (*entities.LibraryEntry, error) {
	var entry entities.LibraryEntry
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Touch records a read of the book at the given time, creating the entry
// when the book was not saved yet.
func (r *Repository) Touch(userID, bookID uint, at time.Time) error {
	at = at.UTC()
	entry := entities.LibraryEntry{UserID: userID, BookID: bookID, AddedAt: at, LastRead: &at}
	return r.db.Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
			DoUpdates: clause.Assignments(map[string]any{"last_read": at}),
		}).
		Create(&entry).Error
}

// LatestRead returns the most recent last_read across all of the user's
// books, or nil when the user never read anything.
func (r *Repository) LatestRead(userID uint) (*time.Time, error) {
	var entry entities.LibraryEntry
	err := r.db.Where("user_id = ? AND last_read IS NOT NULL", userID).
		Order("last_read DESC").
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry.LastRead, nil
}

// ListForUser returns the user's library, most recently read first, then
// most recently added.
func (r *Repository) ListForUser(userID uint) ([]LibraryItem, error) {
	var out []LibraryItem
	err := r.db.Table("library_entries AS le").
		Select(`le.book_id, COALESCE(b.title, '') AS title,
			COALESCE(b.author_id, 0) AS author_id,
			COALESCE(u.username, '') AS author_username,
			COALESCE(u.display_name, '') AS author_name,
			le.added_at, le.last_read`).
		Joins("LEFT JOIN books b ON b.id = le.book_id").
		Joins("LEFT JOIN users u ON u.id = b.author_id").
		Where("le.user_id = ?", userID).
		Order("le.last_read IS NULL, le.last_read DESC, le.added_at DESC").
		Scan(&out).Error
	return out, err
}

// IsNotFound is a convenience for callers that only import this package.
func IsNotFound(err error) bool {
	return database.IsNotFound(err)
}
