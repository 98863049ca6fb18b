// Package dbtest opens throwaway migrated databases and seeds fixtures for
// package tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookverse/internal/database"
	"github.com/mrlokans/bookverse/internal/entities"
)

// Open returns a migrated database in a temp dir, closed when the test ends.
func Open(t testing.TB) *database.Database {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "bookverse_test.db")
	db, err := database.Open(dbPath, database.Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateUser inserts a user with a placeholder credential.
func CreateUser(t testing.TB, db *gorm.DB, username string, role entities.Role) *entities.User {
	t.Helper()
	user := &entities.User{
		Email:        fmt.Sprintf("%s@example.com", username),
		Username:     username,
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateBook inserts a book owned by authorID.
func CreateBook(t testing.TB, db *gorm.DB, authorID uint, title string) *entities.Book {
	t.Helper()
	book := &entities.Book{
		Title:       title,
		Description: title + " description",
		AuthorID:    authorID,
	}
	require.NoError(t, db.Omit("Author").Create(book).Error)
	return book
}

// Count returns the number of rows in the model's table matching the query.
func Count(t testing.TB, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
