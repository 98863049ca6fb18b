package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/database/dbtest"
	"github.com/mrlokans/bookverse/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB, *entities.User, *entities.Book, *entities.Book) {
	db := dbtest.Open(t).DB
	author := dbtest.CreateUser(t, db, "ann", entities.RoleAuthor)
	reader := dbtest.CreateUser(t, db, "rita", entities.RoleReader)
	a := dbtest.CreateBook(t, db, author.ID, "Book A")
	b := dbtest.CreateBook(t, db, author.ID, "Book B")
	return NewRepository(db), db, reader, a, b
}

func TestRepository_AddIsIdempotent(t *testing.T) {
	repo, db, reader, a, _ := setupTestDB(t)
	now := time.Now()

	require.NoError(t, repo.Add(reader.ID, a.ID, now))
	require.NoError(t, repo.Add(reader.ID, a.ID, now.Add(time.Hour)))

	assert.Equal(t, int64(1), dbtest.Count(t, db, &entities.LibraryEntry{}, ""))
	has, err := repo.Has(reader.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, has)

	entry, err := repo.Get(reader.ID, a.ID)
	require.NoError(t, err)
	assert.Nil(t, entry.LastRead, "saving a book is not reading it")
}

func TestRepository_Remove(t *testing.T) {
	repo, _, reader, a, _ := setupTestDB(t)
	require.NoError(t, repo.Add(reader.ID, a.ID, time.Now()))

	removed, err := repo.Remove(reader.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Remove(reader.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = repo.Get(reader.ID, a.ID)
	assert.True(t, IsNotFound(err))
}

func TestRepository_TouchAndLatestRead(t *testing.T) {
	repo, _, reader, a, b := setupTestDB(t)

	latest, err := repo.LatestRead(reader.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	require.NoError(t, repo.Add(reader.ID, a.ID, day1.Add(-time.Hour)))
	require.NoError(t, repo.Touch(reader.ID, a.ID, day1))
	require.NoError(t, repo.Touch(reader.ID, b.ID, day2))

	latest, err = repo.LatestRead(reader.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Equal(day2))

	entryA, err := repo.Get(reader.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, entryA.LastRead.Equal(day1))
	assert.True(t, entryA.AddedAt.Equal(day1.Add(-time.Hour)), "touch keeps the original added_at")
}

func TestRepository_ListForUser(t *testing.T) {
	repo, _, reader, a, b := setupTestDB(t)
	now := time.Now()

	require.NoError(t, repo.Add(reader.ID, a.ID, now))
	require.NoError(t, repo.Touch(reader.ID, b.ID, now))

	items, err := repo.ListForUser(reader.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Book B", items[0].Title, "read books come first")
	assert.NotNil(t, items[0].LastRead)
	assert.Equal(t, "ann", items[1].AuthorUsername)
	assert.Nil(t, items[1].LastRead)
}
