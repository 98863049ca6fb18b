package http

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookverse/internal/database/dbtest"
	"github.com/mrlokans/bookverse/internal/entities"
)

func TestReviewUpsert(t *testing.T) {
	app := setupApp(t)
	author := app.login(t, "writer", entities.RoleAuthor)
	reader := app.login(t, "reader", entities.RoleReader)
	bookID := app.upload(t, author, "Reviewed", []byte("doc"))
	path := fmt.Sprintf("/books/%d/reviews", bookID)

	rr := app.form(t, http.MethodPost, path, url.Values{"rating": {"3"}, "comment": {"ok"}}, reader)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = app.form(t, http.MethodPost, path, url.Values{"rating": {"5"}, "comment": {"better on reread"}}, reader)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = app.form(t, http.MethodPost, path, url.Values{"rating": {"6"}}, reader)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, CodeValidation, errorCode(t, rr))

	rr = app.get(t, path, reader)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Reviews []struct {
			Rating   int    `json:"rating"`
			Comment  string `json:"comment"`
			Username string `json:"username"`
		} `json:"reviews"`
		Average float64 `json:"average_rating"`
		Count   int64   `json:"review_count"`
	}
	decode(t, rr, &list)
	require.Len(t, list.Reviews, 1)
	assert.Equal(t, 5, list.Reviews[0].Rating)
	assert.Equal(t, "better on reread", list.Reviews[0].Comment)
	assert.Equal(t, "reader", list.Reviews[0].Username)
	assert.Equal(t, 5.0, list.Average)
	assert.Equal(t, int64(1), list.Count)

	assert.Equal(t, http.StatusNotFound, app.form(t, http.MethodPost, "/books/999/reviews", url.Values{"rating": {"4"}}, reader).Code)
}

func TestReviewBadgeNotification(t *testing.T) {
	app := setupApp(t)
	author := app.login(t, "writer", entities.RoleAuthor)
	reader := app.login(t, "reader", entities.RoleReader)

	var last struct {
		Notifications []struct {
			Message string `json:"message"`
		} `json:"notifications"`
	}
	for i := 0; i < 3; i++ {
		bookID := app.upload(t, author, fmt.Sprintf("Book %d", i), []byte("doc"))
		rr := app.form(t, http.MethodPost, fmt.Sprintf("/books/%d/reviews", bookID), url.Values{"rating": {"4"}}, reader)
		require.Equal(t, http.StatusCreated, rr.Code)
		decode(t, rr, &last)
	}
	require.Len(t, last.Notifications, 1)
	assert.Equal(t, "New Achievement: Reviewer!", last.Notifications[0].Message)
}

func TestTechSupportCannotReview(t *testing.T) {
	app := setupApp(t)
	author := app.login(t, "writer", entities.RoleAuthor)
	staff := app.login(t, "helper", entities.RoleTechSupport)
	bookID := app.upload(t, author, "Book", []byte("doc"))

	rr := app.form(t, http.MethodPost, fmt.Sprintf("/books/%d/reviews", bookID), url.Values{"rating": {"4"}}, staff)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, http.StatusForbidden, app.get(t, "/library", staff).Code)
	assert.Zero(t, dbtest.Count(t, app.db, &entities.Review{}, ""))

	// Staff can still read, untracked.
	rr = app.get(t, fmt.Sprintf("/books/%d/read", bookID), staff)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, dbtest.Count(t, app.db, &entities.LibraryEntry{}, ""))
}

func TestDiscussionThread(t *testing.T) {
	app := setupApp(t)
	author := app.login(t, "writer", entities.RoleAuthor)
	reader := app.login(t, "reader", entities.RoleReader)
	bookID := app.upload(t, author, "Talked About", []byte("doc"))

	rr := app.form(t, http.MethodPost, fmt.Sprintf("/books/%d/discussions", bookID),
		url.Values{"title": {"Chapter 3"}, "body": {"Who did it?"}}, reader)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var d entities.Discussion
	decode(t, rr, &d)

	for _, content := range []string{"The butler", "Surely not"} {
		rr = app.form(t, http.MethodPost, fmt.Sprintf("/discussions/%d/replies", d.ID), url.Values{"content": {content}}, author)
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	rr = app.form(t, http.MethodPost, fmt.Sprintf("/discussions/%d/replies", d.ID), url.Values{"content": {"  "}}, author)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = app.form(t, http.MethodPost, "/discussions/999/replies", url.Values{"content": {"hello"}}, author)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = app.get(t, fmt.Sprintf("/discussions/%d", d.ID), reader)
	require.Equal(t, http.StatusOK, rr.Code)
	var thread struct {
		Title     string `json:"title"`
		BookTitle string `json:"book_title"`
		Replies   []struct {
			Content  string `json:"content"`
			Username string `json:"username"`
		} `json:"replies"`
	}
	decode(t, rr, &thread)
	assert.Equal(t, "Chapter 3", thread.Title)
	assert.Equal(t, "Talked About", thread.BookTitle)
	require.Len(t, thread.Replies, 2)
	assert.Equal(t, "The butler", thread.Replies[0].Content)
	assert.Equal(t, "writer", thread.Replies[0].Username)

	rr = app.form(t, http.MethodPost, fmt.Sprintf("/books/%d/discussions", bookID), url.Values{"title": {"No body"}}, reader)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLibrary(t *testing.T) {
	app := setupApp(t)
	author := app.login(t, "writer", entities.RoleAuthor)
	reader := app.login(t, "reader", entities.RoleReader)
	bookID := app.upload(t, author, "Keeper", []byte("doc"))
	path := fmt.Sprintf("/library/%d", bookID)

	require.Equal(t, http.StatusOK, app.form(t, http.MethodPost, path, nil, reader).Code)
	require.Equal(t, http.StatusOK, app.form(t, http.MethodPost, path, nil, reader).Code)
	assert.Equal(t, int64(1), dbtest.Count(t, app.db, &entities.LibraryEntry{}, ""))

	rr := app.get(t, "/library", reader)
	require.Equal(t, http.StatusOK, rr.Code)
	var lib struct {
		Books []struct {
			Title          string `json:"title"`
			AuthorUsername string `json:"author_username"`
		} `json:"books"`
	}
	decode(t, rr, &lib)
	require.Len(t, lib.Books, 1)
	assert.Equal(t, "Keeper", lib.Books[0].Title)
	assert.Equal(t, "writer", lib.Books[0].AuthorUsername)

	assert.Equal(t, http.StatusOK, app.serve(newRequest(http.MethodDelete, path), reader).Code)
	assert.Equal(t, http.StatusNotFound, app.serve(newRequest(http.MethodDelete, path), reader).Code)
	assert.Equal(t, http.StatusNotFound, app.form(t, http.MethodPost, "/library/999", nil, reader).Code)
}
