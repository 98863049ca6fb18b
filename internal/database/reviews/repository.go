// Package reviews stores book reviews. A user holds at most one review per
// book; submitting again edits it.
package reviews

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookverse/internal/database"
	"github.com/mrlokans/bookverse/internal/entities"
)

var ErrInvalidRating = fmt.Errorf("%w: rating must be between %d and %d",
	database.ErrValidation, entities.MinRating, entities.MaxRating)

// ReviewView is a review joined with its author and book. Joined fields are
// empty when the referenced row is missing.
type ReviewView struct {
	ID          uint      `json:"id"`
	BookID      uint      `json:"book_id"`
	BookTitle   string    `json:"book_title"`
	UserID      uint      `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
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

// Upsert creates the user's review of a book or overwrites the existing one.
// The returned bool is true when a new row was inserted.
func (r *Repository) Upsert(userID, bookID uint, rating int, comment string) (*entities.Review, bool, error) {
	if !entities.ValidRating(rating) {
		return nil, false, ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)

	var review entities.Review
	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND book_id = ?", userID, bookID).First(&review).Error
		switch {
		case err == nil:
			review.Rating = rating
			review.Comment = comment
			return tx.Model(&review).Select("rating", "comment", "updated_at").Updates(&review).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			review = entities.Review{UserID: userID, BookID: bookID, Rating: rating, Comment: comment}
			created = true
			return tx.Omit(clause.Associations).Create(&review).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, false, database.TranslateError(err)
	}
	return &review, created, nil
}

// Get returns one review.
func (r *Repository) Get(id uint) (*entities.Review, error) {
	var review entities.Review
	if err := r.db.First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *Repository) views() *gorm.DB {
	return r.db.Table("reviews AS rv").
		Select(`rv.id, rv.book_id, COALESCE(b.title, '') AS book_title,
			rv.user_id, COALESCE(u.username, '') AS username,
			COALESCE(u.display_name, '') AS display_name,
			rv.rating, rv.comment, rv.created_at, rv.updated_at`).
		Joins("LEFT JOIN users u ON u.id = rv.user_id").
		Joins("LEFT JOIN books b ON b.id = rv.book_id")
}

// ListForBook returns the reviews of one book, newest first.
func (r *Repository) ListForBook(bookID uint) ([]ReviewView, error) {
	var out []ReviewView
	err := r.views().Where("rv.book_id = ?", bookID).Order("rv.created_at DESC, rv.id DESC").Scan(&out).Error
	return out, err
}

// ListForAuthorBooks returns reviews left on any book the author owns.
func (r *Repository) ListForAuthorBooks(authorID uint) ([]ReviewView, error) {
	var out []ReviewView
	err := r.views().Where("b.author_id = ?", authorID).Order("rv.created_at DESC, rv.id DESC").Scan(&out).Error
	return out, err
}

// ListAll returns every review for moderation.
func (r *Repository) ListAll() ([]ReviewView, error) {
	var out []ReviewView
	err := r.views().Order("rv.created_at DESC, rv.id DESC").Scan(&out).Error
	return out, err
}

// Delete removes one review.
func (r *Repository) Delete(id uint) error {
	res := r.db.Delete(&entities.Review{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// CountByUser returns how many reviews the user has written.
func (r *Repository) CountByUser(userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&entities.Review{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// Count returns the number of reviews.
func (r *Repository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&entities.Review{}).Count(&n).Error
	return n, err
}

// AverageForBook returns the mean rating and review count of a book.
func (r *Repository) AverageForBook(bookID uint) (float64, int64, error) {
	var row struct {
		Average float64
		Total   int64
	}
	err := r.db.Model(&entities.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total").
		Where("book_id = ?", bookID).
		Scan(&row).Error
	return row.Average, row.Total, err
}
