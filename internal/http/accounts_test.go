package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookverse/internal/database/dbtest"
	"github.com/mrlokans/bookverse/internal/entities"
)

func TestProfileAvatar(t *testing.T) {
	app := setupApp(t)
	reader := app.login(t, "reader", entities.RoleReader)

	assert.Equal(t, http.StatusNotFound, app.get(t, "/profile/avatar", reader).Code)

	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	rr := app.multipartForm(t, http.MethodPost, "/profile",
		map[string]string{"display_name": "Avid Reader"}, "avatar", "me.png", "image/png", png, reader)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = app.get(t, "/profile/avatar", reader)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, png, rr.Body.Bytes())
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	// Omitting display_name keeps it.
	rr = app.form(t, http.MethodPost, "/profile", url.Values{}, reader)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = app.get(t, "/profile", reader)
	require.Equal(t, http.StatusOK, rr.Code)
	var profile struct {
		User struct {
			DisplayName string `json:"display_name"`
		} `json:"user"`
		HasAvatar bool `json:"has_avatar"`
	}
	decode(t, rr, &profile)
	assert.Equal(t, "Avid Reader", profile.User.DisplayName)
	assert.True(t, profile.HasAvatar)
	assert.NotContains(t, rr.Body.String(), "pbkdf2")

	rr = app.form(t, http.MethodPost, "/profile", url.Values{"display_name": {strings.Repeat("x", 101)}}, reader)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProfileBadges(t *testing.T) {
	app := setupApp(t)
	author := app.login(t, "writer", entities.RoleAuthor)
	reader := app.login(t, "reader", entities.RoleReader)
	require.NoError(t, app.db.Model(&entities.User{}).Where("id = ?", reader.user.ID).
		Updates(map[string]any{"books_read": 4, "reading_streak": 2}).Error)

	bookID := app.upload(t, author, "Fifth", []byte("doc"))
	require.Equal(t, http.StatusOK, app.get(t, fmt.Sprintf("/books/%d/read", bookID), reader).Code)

	rr := app.get(t, "/profile/badges", reader)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Badges []struct {
			BadgeName string `json:"badge_name"`
		} `json:"badges"`
		BooksRead int `json:"books_read"`
	}
	decode(t, rr, &resp)
	require.Len(t, resp.Badges, 1)
	assert.Equal(t, "BookVerse", resp.Badges[0].BadgeName)
	assert.Equal(t, 5, resp.BooksRead)
}

func TestAdminDeletesUser(t *testing.T) {
	app := setupApp(t)
	admin := app.login(t, "root", entities.RoleAdmin)
	author := app.login(t, "writer", entities.RoleAuthor)
	app.upload(t, author, "Orphaned", []byte("doc"))

	rr := app.serve(newRequest(http.MethodDelete, fmt.Sprintf("/admin/users/%d", admin.user.ID)), admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = app.serve(newRequest(http.MethodDelete, fmt.Sprintf("/admin/users/%d", author.user.ID)), admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Zero(t, dbtest.Count(t, app.db, &entities.User{}, "id = ?", author.user.ID))
	assert.Zero(t, dbtest.Count(t, app.db, &entities.Book{}, ""))
	assert.Zero(t, dbtest.Count(t, app.db, &entities.StoredBlob{}, ""))

	// The deleted account's session no longer authenticates.
	assert.Equal(t, http.StatusUnauthorized, app.get(t, "/profile", author).Code)

	rr = app.serve(newRequest(http.MethodDelete, "/admin/users/999"), admin)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	app.auditor.Flush()
	assert.Equal(t, int64(1), dbtest.Count(t, app.db, &entities.AuditEvent{}, "action = ?", "user_deleted"))
}

func TestAdminModeration(t *testing.T) {
	app := setupApp(t)
	admin := app.login(t, "root", entities.RoleAdmin)
	author := app.login(t, "writer", entities.RoleAuthor)
	reader := app.login(t, "reader", entities.RoleReader)
	bookID := app.upload(t, author, "Contested", []byte("doc"))

	rr := app.form(t, http.MethodPost, fmt.Sprintf("/books/%d/reviews", bookID), url.Values{"rating": {"1"}, "comment": {"spam"}}, reader)
	require.Equal(t, http.StatusCreated, rr.Code)
	var review struct {
		Review entities.Review `json:"review"`
	}
	decode(t, rr, &review)

	rr = app.form(t, http.MethodPost, fmt.Sprintf("/books/%d/discussions", bookID), url.Values{"title": {"t"}, "body": {"b"}}, reader)
	require.Equal(t, http.StatusCreated, rr.Code)
	var d entities.Discussion
	decode(t, rr, &d)
	require.Equal(t, http.StatusCreated, app.form(t, http.MethodPost, fmt.Sprintf("/discussions/%d/replies", d.ID), url.Values{"content": {"r"}}, author).Code)

	// Authors cannot moderate.
	assert.Equal(t, http.StatusForbidden, app.get(t, "/admin/reviews", author).Code)

	rr = app.get(t, "/admin/dashboard", admin)
	require.Equal(t, http.StatusOK, rr.Code)
	var dash struct {
		Counts dashboardCounts `json:"counts"`
	}
	decode(t, rr, &dash)
	assert.Equal(t, dashboardCounts{Users: 3, Books: 1, Reviews: 1, Discussions: 1}, dash.Counts)

	assert.Equal(t, http.StatusOK, app.serve(newRequest(http.MethodDelete, fmt.Sprintf("/admin/reviews/%d", review.Review.ID)), admin).Code)
	assert.Equal(t, http.StatusNotFound, app.serve(newRequest(http.MethodDelete, fmt.Sprintf("/admin/reviews/%d", review.Review.ID)), admin).Code)
	assert.Equal(t, http.StatusOK, app.serve(newRequest(http.MethodDelete, fmt.Sprintf("/admin/discussions/%d", d.ID)), admin).Code)
	assert.Zero(t, dbtest.Count(t, app.db, &entities.Reply{}, ""))

	app.auditor.Flush()
	rr = app.get(t, "/admin/audit?type=moderation", admin)
	require.Equal(t, http.StatusOK, rr.Code)
	var log struct {
		Total int64 `json:"total"`
	}
	decode(t, rr, &log)
	assert.Equal(t, int64(2), log.Total)
}

func TestSupportFlow(t *testing.T) {
	app := setupApp(t)
	reader := app.login(t, "reader", entities.RoleReader)
	other := app.login(t, "other", entities.RoleReader)
	staff := app.login(t, "helper", entities.RoleTechSupport)

	rr := app.form(t, http.MethodPost, "/support", url.Values{"subject": {"Login"}, "message": {"Cannot read PDFs"}}, reader)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var q entities.SupportQuery
	decode(t, rr, &q)
	assert.Equal(t, entities.SupportStatusOpen, q.Status)

	assert.Equal(t, http.StatusBadRequest, app.form(t, http.MethodPost, "/support", url.Values{"subject": {"x"}}, reader).Code)
	assert.Equal(t, http.StatusForbidden, app.get(t, "/support/dashboard", reader).Code)
	assert.Equal(t, http.StatusForbidden, app.get(t, fmt.Sprintf("/support/%d", q.ID), other).Code)

	base := fmt.Sprintf("/support/%d", q.ID)
	assert.Equal(t, http.StatusOK, app.form(t, http.MethodPost, base+"/status", url.Values{"status": {"in_progress"}}, staff).Code)
	rr = app.form(t, http.MethodPost, base+"/status", url.Values{"status": {"closed"}}, staff)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, CodeValidation, errorCode(t, rr))

	rr = app.get(t, "/support/dashboard", staff)
	require.Equal(t, http.StatusOK, rr.Code)
	var dash map[string][]struct {
		ID uint `json:"id"`
	}
	decode(t, rr, &dash)
	assert.Len(t, dash["in_progress"], 1)
	assert.Empty(t, dash["open"])

	require.Equal(t, http.StatusCreated, app.form(t, http.MethodPost, base+"/respond", url.Values{"response": {"Try another browser"}}, staff).Code)
	assert.Equal(t, http.StatusNotFound, app.form(t, http.MethodPost, "/support/999/respond", url.Values{"response": {"x"}}, staff).Code)

	rr = app.get(t, base, reader)
	require.Equal(t, http.StatusOK, rr.Code)
	var detail entities.SupportQuery
	decode(t, rr, &detail)
	assert.Equal(t, entities.SupportStatusResolved, detail.Status)
	assert.Equal(t, "Try another browser", detail.Response)
	require.Len(t, detail.Responses, 1)
	assert.Equal(t, staff.user.ID, detail.Responses[0].ResponderID)

	// Staff answer queries but do not file them.
	assert.Equal(t, http.StatusForbidden, app.form(t, http.MethodPost, "/support", url.Values{"subject": {"s"}, "message": {"m"}}, staff).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupApp(t)

	rr := app.form(t, http.MethodPost, "/register", url.Values{
		"email": {"new@example.com"}, "username": {"newbie"}, "password": {testPassword}, "role": {"author"},
	}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = app.get(t, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `bookverse_registrations_total{role="author"} 1`)
	assert.Contains(t, rr.Body.String(), "bookverse_http_requests_total")
}

func TestAdminQueuesAuditPrune(t *testing.T) {
	app := setupApp(t)
	admin := app.login(t, "root", entities.RoleAdmin)
	support := app.login(t, "helper", entities.RoleTechSupport)

	rr := app.serve(newRequest(http.MethodPost, "/admin/maintenance/prune-audit"), support)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Zero(t, app.pruner.runs)

	rr = app.serve(newRequest(http.MethodPost, "/admin/maintenance/prune-audit"), admin)
	require.Equal(t, http.StatusAccepted, rr.Code)
	var body struct {
		TaskID string `json:"task_id"`
	}
	decode(t, rr, &body)
	assert.Equal(t, "task-1", body.TaskID)
	assert.Equal(t, 1, app.pruner.runs)
}
