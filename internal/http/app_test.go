package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/audit"
	"github.com/mrlokans/bookverse/internal/auth"
	"github.com/mrlokans/bookverse/internal/config"
	auditRepo "github.com/mrlokans/bookverse/internal/database/audit"
	"github.com/mrlokans/bookverse/internal/database/dbtest"
	"github.com/mrlokans/bookverse/internal/database/users"
	"github.com/mrlokans/bookverse/internal/engagement"
	"github.com/mrlokans/bookverse/internal/entities"
	"github.com/mrlokans/bookverse/internal/metrics"
	"github.com/mrlokans/bookverse/internal/services"
	"github.com/mrlokans/bookverse/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "correct-horse-battery"

type testApp struct {
	router  *gin.Engine
	db      *gorm.DB
	auth    *auth.Service
	auditor *audit.Service
	metrics *metrics.Metrics
	blobs   storage.BlobStore
	pruner  *stubMaintenance
}

type stubMaintenance struct {
	runs int
}

func (s *stubMaintenance) RunNow() (string, error) {
	s.runs++
	return fmt.Sprintf("task-%d", s.runs), nil
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	database := dbtest.Open(t)
	db := database.DB
	sqlDB, err := db.DB()
	require.NoError(t, err)

	authCfg := config.Auth{
		SessionLifetime:  time.Hour,
		PBKDF2Iterations: config.MinPBKDF2Iterations,
		MaxLoginAttempts: 5,
		RateLimitWindow:  15 * time.Minute,
		LockoutDuration:  30 * time.Minute,
	}
	authService := auth.NewService(users.NewRepository(db), authCfg)
	sessions, err := auth.NewSessionManager(sqlDB, authCfg.SessionLifetime, false)
	require.NoError(t, err)

	auditor := audit.NewService(auditRepo.NewRepository(db))
	t.Cleanup(auditor.Flush)

	m := metrics.New()
	blobs := storage.NewDatabaseStore(db)
	const maxUpload = 1 << 20
	pruner := &stubMaintenance{}

	router := NewRouter(RouterConfig{
		Database:       database,
		Auditor:        auditor,
		Tracker:        engagement.NewTracker(db, config.Engagement{}, engagement.WithRecorder(m)),
		Catalog:        services.NewCatalogService(db, blobs, maxUpload),
		Accounts:       services.NewAccountService(db, blobs, maxUpload),
		MaxUploadBytes: maxUpload,
		AuthService:    authService,
		SessionManager: sessions,
		AuthMiddleware: auth.NewMiddleware(authService, sessions, auditor),
		AuthConfig:     authCfg,
		Metrics:        m,
		Maintenance:    pruner,
		Version:        "test",
	})

	return &testApp{router: router, db: db, auth: authService, auditor: auditor, metrics: m, blobs: blobs, pruner: pruner}
}

// session is a logged-in client.
type session struct {
	user    *entities.User
	cookies []*http.Cookie
}

func (a *testApp) provision(t *testing.T, username string, role entities.Role) *entities.User {
	t.Helper()
	user, err := a.auth.Provision(auth.Registration{
		Email:    username + "@example.com",
		Username: username,
		Password: testPassword,
		Role:     string(role),
	})
	require.NoError(t, err)
	return user
}

func (a *testApp) login(t *testing.T, username string, role entities.Role) *session {
	t.Helper()
	user := a.provision(t, username, role)
	rr := a.form(t, http.MethodPost, "/login", url.Values{"login": {username}, "password": {testPassword}}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	return &session{user: user, cookies: cookies}
}

func (a *testApp) serve(req *http.Request, s *session) *httptest.ResponseRecorder {
	if s != nil {
		for _, c := range s.cookies {
			req.AddCookie(c)
		}
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testApp) get(t *testing.T, path string, s *session) *httptest.ResponseRecorder {
	t.Helper()
	return a.serve(httptest.NewRequest(http.MethodGet, path, nil), s)
}

func (a *testApp) form(t *testing.T, method, path string, form url.Values, s *session) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.serve(req, s)
}

// multipartForm sends fields plus one file under fileField.
func (a *testApp) multipartForm(t *testing.T, method, path string, fields map[string]string, fileField, filename, contentType string, data []byte, s *session) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filename)}
		header["Content-Type"] = []string{contentType}
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return a.serve(req, s)
}

// upload publishes a book as author and returns its ID.
func (a *testApp) upload(t *testing.T, author *session, title string, data []byte) uint {
	t.Helper()
	rr := a.multipartForm(t, http.MethodPost, "/author/books",
		map[string]string{"title": title, "description": title + " blurb"},
		"document", "book.pdf", "application/pdf", data, author)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var book entities.Book
	decode(t, rr, &book)
	return book.ID
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v), string(body))
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	decode(t, rr, &resp)
	return resp.Code
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}
