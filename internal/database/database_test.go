package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookverse/internal/entities"
)

// setupTestDB creates a fresh migrated test database
func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// setupBareDB opens a database without running migrations.
func setupBareDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "bare.db"), Options{LogLevel: logger.Silent, SkipMigrations: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase_CreatesAllTables(t *testing.T) {
	db := setupTestDB(t)

	for _, model := range append(BaseModels, &entities.Badge{}, &entities.SchemaMigration{}) {
		assert.True(t, db.DB.Migrator().HasTable(model), "missing table for %T", model)
	}
	assert.True(t, db.DB.Migrator().HasIndex(&entities.Review{}, reviewUniqueIndexName))
	assert.NoError(t, db.Ping())
}

func TestMigrate_IsIdempotentAndRecorded(t *testing.T) {
	db := setupBareDB(t)

	applied, err := Migrate(db.DB)
	require.NoError(t, err)
	assert.Equal(t, len(Migrations()), applied)

	again, err := Migrate(db.DB)
	require.NoError(t, err)
	assert.Zero(t, again)

	recorded, err := AppliedMigrations(db.DB)
	require.NoError(t, err)
	require.Len(t, recorded, len(Migrations()))
	for i, m := range Migrations() {
		assert.Equal(t, m.Version, recorded[i].Version)
		assert.Equal(t, m.Name, recorded[i].Name)
		assert.False(t, recorded[i].AppliedAt.IsZero())
	}

	pending, err := PendingMigrations(db.DB)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMigrateSteps_FailedStepIsNotRecorded(t *testing.T) {
	db := setupBareDB(t)

	steps := []Migration{
		{Version: 1, Name: "create_things", Up: func(tx *gorm.DB) error {
			return tx.Exec("CREATE TABLE things (id INTEGER PRIMARY KEY)").Error
		}},
		{Version: 2, Name: "broken", Up: func(tx *gorm.DB) error {
			if err := tx.Exec("CREATE TABLE half_done (id INTEGER PRIMARY KEY)").Error; err != nil {
				return err
			}
			return errors.New("boom")
		}},
	}

	applied, err := MigrateSteps(db.DB, steps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 2 (broken)")
	assert.Equal(t, 1, applied)

	assert.True(t, db.DB.Migrator().HasTable("things"))
	assert.False(t, db.DB.Migrator().HasTable("half_done"), "failed step must roll back")

	recorded, err := AppliedMigrations(db.DB)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, 1, recorded[0].Version)
}

func TestMigrate_AddsEngagementCountersToOldUsersTable(t *testing.T) {
	db := setupBareDB(t)

	require.NoError(t, db.DB.Exec(`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		display_name TEXT,
		role TEXT NOT NULL DEFAULT 'reader',
		avatar_key TEXT,
		failed_login_attempts INTEGER NOT NULL DEFAULT 0,
		locked_until DATETIME,
		last_login_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)
	require.NoError(t, db.DB.Exec(`INSERT INTO users (email, username, password_hash, role) VALUES ('a@x.com', 'alice', 'h', 'reader')`).Error)

	_, err := Migrate(db.DB)
	require.NoError(t, err)

	var user entities.User
	require.NoError(t, db.DB.Where("username = ?", "alice").First(&user).Error)
	assert.Zero(t, user.ReadingStreak)
	assert.Zero(t, user.BooksRead)
}

func TestMigrate_RebuildsLegacyTables(t *testing.T) {
	db := setupBareDB(t)

	require.NoError(t, db.DB.Exec(`CREATE TABLE users (
		email TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		password TEXT NOT NULL,
		full_name TEXT,
		user_type TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		avatar BLOB,
		reading_streak INTEGER DEFAULT 0,
		books_read INTEGER DEFAULT 0
	)`).Error)
	require.NoError(t, db.DB.Exec(`CREATE TABLE books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT,
		author_email TEXT NOT NULL,
		amazon_link TEXT,
		pdf_data BLOB,
		upload_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`).Error)
	require.NoError(t, db.DB.Exec(`INSERT INTO users (email, username, password, full_name, user_type, reading_streak, books_read)
		VALUES ('ann@x.com', 'ann', 'legacyhash', 'Ann Author', 'author', 0, 0),
		       ('rita@x.com', 'rita', 'legacyhash', NULL, 'reader', 4, 6)`).Error)
	require.NoError(t, db.DB.Exec(`INSERT INTO books (id, title, description, author_email, amazon_link, pdf_data)
		VALUES (7, 'Old Book', NULL, 'ann@x.com', 'https://example.com/buy', X'25504446'),
		       (8, 'No File', 'kept', 'ann@x.com', NULL, NULL)`).Error)

	_, err := Migrate(db.DB)
	require.NoError(t, err)

	var ann, rita entities.User
	require.NoError(t, db.DB.Where("email = ?", "ann@x.com").First(&ann).Error)
	require.NoError(t, db.DB.Where("email = ?", "rita@x.com").First(&rita).Error)
	assert.Equal(t, entities.RoleAuthor, ann.Role)
	assert.Equal(t, "Ann Author", ann.DisplayName)
	assert.Equal(t, "legacyhash", ann.PasswordHash)
	assert.Equal(t, 4, rita.ReadingStreak)
	assert.Equal(t, 6, rita.BooksRead)

	var book entities.Book
	require.NoError(t, db.DB.First(&book, 7).Error)
	assert.Equal(t, "Old Book", book.Title)
	assert.Equal(t, "", book.Description)
	assert.Equal(t, ann.ID, book.AuthorID)
	assert.Equal(t, "https://example.com/buy", book.PurchaseLink)
	assert.Equal(t, "books/legacy-7", book.DocumentKey)
	assert.Equal(t, int64(4), book.DocumentSize)

	var blob entities.StoredBlob
	require.NoError(t, db.DB.Where(`"key" = ?`, book.DocumentKey).First(&blob).Error)
	assert.Equal(t, []byte("%PDF"), blob.Data)

	var plain entities.Book
	require.NoError(t, db.DB.First(&plain, 8).Error)
	assert.False(t, plain.HasDocument())

	assert.False(t, db.DB.Migrator().HasTable("books_legacy"))
	assert.False(t, db.DB.Migrator().HasTable("users_legacy"))
}

func TestMigrate_RebuildFallsBackToEmptyTableWhenCopyFails(t *testing.T) {
	db := setupBareDB(t)

	// A title of NULL cannot be copied into the NOT NULL column.
	require.NoError(t, db.DB.Exec(`CREATE TABLE books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT,
		description TEXT
	)`).Error)
	require.NoError(t, db.DB.Exec(`INSERT INTO books (title, description) VALUES ('fine', 'x'), (NULL, 'y')`).Error)

	_, err := Migrate(db.DB)
	require.NoError(t, err)

	assert.True(t, db.DB.Migrator().HasColumn(&entities.Book{}, "document_key"))
	var n int64
	require.NoError(t, db.DB.Model(&entities.Book{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestMigrate_CollapsesDuplicateReviewsBeforeIndexing(t *testing.T) {
	db := setupBareDB(t)

	steps := Migrations()
	_, err := MigrateSteps(db.DB, steps[:4])
	require.NoError(t, err)
	require.NoError(t, db.DB.Migrator().DropIndex(&entities.Review{}, reviewUniqueIndexName))

	require.NoError(t, db.DB.Exec(`INSERT INTO users (id, email, username, password_hash, role) VALUES (1, 'r@x.com', 'r', 'h', 'reader')`).Error)
	require.NoError(t, db.DB.Exec(`INSERT INTO books (id, title, description, author_id) VALUES (1, 'B', 'd', 1)`).Error)
	require.NoError(t, db.DB.Exec(`INSERT INTO reviews (book_id, user_id, rating, comment) VALUES (1, 1, 2, 'first'), (1, 1, 5, 'second')`).Error)

	_, err = Migrate(db.DB)
	require.NoError(t, err)

	var reviews []entities.Review
	require.NoError(t, db.DB.Find(&reviews).Error)
	require.Len(t, reviews, 1)
	assert.Equal(t, "second", reviews[0].Comment)
	assert.True(t, db.DB.Migrator().HasIndex(&entities.Review{}, reviewUniqueIndexName))
}

func TestForeignKeysAreEnforced(t *testing.T) {
	db := setupTestDB(t)

	err := db.DB.Exec(`INSERT INTO reviews (book_id, user_id, rating) VALUES (999, 999, 3)`).Error
	assert.Error(t, err)
}

func TestTranslateError(t *testing.T) {
	db := setupTestDB(t)

	user := entities.User{Email: "a@x.com", Username: "alice", PasswordHash: "h", Role: entities.RoleReader}
	require.NoError(t, db.DB.Create(&user).Error)

	dup := entities.User{Email: "a@x.com", Username: "other", PasswordHash: "h", Role: entities.RoleReader}
	err := db.DB.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.ErrorIs(t, TranslateError(err), ErrConflict)

	plain := errors.New("disk I/O error")
	assert.Same(t, plain, TranslateError(plain))
	assert.False(t, IsUniqueViolation(nil))
}

func TestCopyPlan(t *testing.T) {
	newCols := map[string]bool{"id": true, "title": true, "purchase_link": true, "document_key": true}
	oldCols := map[string]bool{"id": true, "title": true, "amazon_link": true}
	sources := []columnSource{
		{Column: "purchase_link", Requires: "amazon_link", Expr: "legacy.amazon_link"},
		{Column: "document_key", Requires: "pdf_data", Expr: "'x'"},
	}

	targets, exprs := copyPlan(newCols, oldCols, sources)

	assert.Equal(t, []string{`"id"`, `"purchase_link"`, `"title"`}, targets)
	assert.Equal(t, []string{`legacy."id"`, "legacy.amazon_link", `legacy."title"`}, exprs)
}
