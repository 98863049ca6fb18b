// Package users provides database operations for user accounts.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByEmail(email)
package users

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookverse/internal/database"
	"github.com/mrlokans/bookverse/internal/database/books"
	"github.com/mrlokans/bookverse/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a user. Email and username must be unique; a clash is
// reported as database.ErrConflict.
func (r *Repository) Create(user *entities.User) error {
	user.Email = strings.TrimSpace(user.Email)
	user.Username = strings.TrimSpace(user.Username)
	if user.Email == "" || user.Username == "" {
		return database.Invalid("email and username are required")
	}
	if !user.Role.Valid() {
		return database.Invalid("unknown role %q", user.Role)
	}
	if err := r.db.Omit(clause.Associations).Create(user).Error; err != nil {
		return database.TranslateError(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *Repository) GetByEmail(email string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("LOWER(email) = LOWER(?)", strings.TrimSpace(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by username.
func (r *Repository) GetByUsername(username string) (*entities.User, error) {
	var user entities.User
	if err := r.db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailTaken reports whether any account uses the email, ignoring case.
func (r *Repository) EmailTaken(email string) (bool, error) {
	var n int64
	err := r.db.Model(&entities.User{}).Where("LOWER(email) = LOWER(?)", strings.TrimSpace(email)).Count(&n).Error
	return n > 0, err
}

// UsernameTaken reports whether the username is in use.
func (r *Repository) UsernameTaken(username string) (bool, error) {
	var n int64
	err := r.db.Model(&entities.User{}).Where("username = ?", strings.TrimSpace(username)).Count(&n).Error
	return n > 0, err
}

// UpdateProfile sets the display name and avatar key.
func (r *Repository) UpdateProfile(userID uint, displayName, avatarKey string) error {
	res := r.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"display_name": strings.TrimSpace(displayName),
		"avatar_key":   avatarKey,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored credential.
func (r *Repository) UpdatePassword(userID uint, credential string) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", userID).Update("password_hash", credential)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// UpdateCounters stores the engagement counters.
func (r *Repository) UpdateCounters(userID uint, booksRead, readingStreak int) error {
	return r.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"books_read":     booksRead,
		"reading_streak": readingStreak,
	}).Error
}

// RecordLoginFailure stores the failed attempt count and optional lock.
func (r *Repository) RecordLoginFailure(user *entities.User) error {
	return r.db.Model(user).Select("failed_login_attempts", "locked_until").Updates(user).Error
}

// RecordLoginSuccess clears the failure counters and stamps the login time.
func (r *Repository) RecordLoginSuccess(user *entities.User) error {
	return r.db.Model(user).Select("failed_login_attempts", "locked_until", "last_login_at").Updates(user).Error
}

// List returns users, most recent first. A non-positive limit returns all.
func (r *Repository) List(limit int) ([]entities.User, error) {
	var users []entities.User
	q := r.db.Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&users).Error
	return users, err
}

// Count returns the number of users, optionally restricted to one role.
func (r *Repository) Count(role entities.Role) (int64, error) {
	var n int64
	q := r.db.Model(&entities.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	err := q.Count(&n).Error
	return n, err
}

// Deleted lists the blob keys that belonged to a removed user and their books.
type Deleted struct {
	AvatarKey    string
	DocumentKeys []string
}

// Delete hard-deletes the user and everything that references them, in
// dependency order, inside one transaction.
func (r *Repository) Delete(userID uint) (*Deleted, error) {
	var out Deleted
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		out.AvatarKey = user.AvatarKey

		var ownBooks []uint
		if err := tx.Model(&entities.Book{}).Where("author_id = ?", userID).Pluck("id", &ownBooks).Error; err != nil {
			return err
		}
		bookRepo := books.NewRepository(tx)
		for _, bookID := range ownBooks {
			key, err := bookRepo.Delete(bookID)
			if err != nil {
				return fmt.Errorf("failed to delete book %d: %w", bookID, err)
			}
			if key != "" {
				out.DocumentKeys = append(out.DocumentKeys, key)
			}
		}

		steps := []struct {
			model any
			where string
		}{
			{&entities.Reply{}, "user_id = ?"},
			{&entities.Reply{}, "discussion_id IN (SELECT id FROM discussions WHERE user_id = ?)"},
			{&entities.Discussion{}, "user_id = ?"},
			{&entities.Review{}, "user_id = ?"},
			{&entities.LibraryEntry{}, "user_id = ?"},
			{&entities.Badge{}, "user_id = ?"},
			{&entities.SupportResponse{}, "responder_id = ?"},
			{&entities.SupportResponse{}, "query_id IN (SELECT id FROM support_queries WHERE user_id = ?)"},
			{&entities.SupportQuery{}, "user_id = ?"},
		}
		for _, step := range steps {
			if err := tx.Where(step.where, userID).Delete(step.model).Error; err != nil {
				return fmt.Errorf("failed to delete %T rows: %w", step.model, err)
			}
		}
		return tx.Delete(&entities.User{}, userID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
