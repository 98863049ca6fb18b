package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_LocksAfterMaxAttempts(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 2, WindowDuration: time.Minute, LockoutDuration: 10 * time.Minute})
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	allowed, _ := rl.Allow("1.2.3.4", "alice")
	assert.True(t, allowed)

	locked, _ := rl.RecordFailure("1.2.3.4", "alice")
	assert.False(t, locked)
	locked, retry := rl.RecordFailure("1.2.3.4", "Alice")
	assert.True(t, locked, "identifier comparison ignores case")
	assert.Equal(t, 10*time.Minute, retry)

	allowed, retry = rl.Allow("1.2.3.4", "alice")
	assert.False(t, allowed)
	assert.Equal(t, 10*time.Minute, retry)

	// Other IPs and identifiers are unaffected.
	allowed, _ = rl.Allow("5.6.7.8", "alice")
	assert.True(t, allowed)
	allowed, _ = rl.Allow("1.2.3.4", "bob")
	assert.True(t, allowed)

	now = now.Add(11 * time.Minute)
	allowed, _ = rl.Allow("1.2.3.4", "alice")
	assert.True(t, allowed)
}

func TestRateLimiter_WindowExpiryResetsCount(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 2, WindowDuration: time.Minute, LockoutDuration: time.Hour})
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.RecordFailure("ip", "alice")
	now = now.Add(2 * time.Minute)
	locked, _ := rl.RecordFailure("ip", "alice")
	assert.False(t, locked)
}

func TestRateLimiter_SuccessClears(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAttempts: 2})

	rl.RecordFailure("ip", "alice")
	rl.RecordSuccess("ip", "alice")
	locked, _ := rl.RecordFailure("ip", "alice")
	assert.False(t, locked)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware(), StrictTransportSecurityMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.Empty(t, rr.Header().Get("Strict-Transport-Security"), "plain HTTP gets no HSTS")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Contains(t, rr.Header().Get("Strict-Transport-Security"), "max-age=")
}

func csrfRouter() *gin.Engine {
	router := gin.New()
	router.Use(CSRFMiddleware([]byte("test-secret-key-32-bytes-long!!!"), false))
	router.GET("/csrf", CSRFTokenHandler)
	router.POST("/submit", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestCSRFMiddleware_AllowsGET(t *testing.T) {
	router := csrfRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/csrf", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(CSRFTokenHeader))
}

func TestCSRFMiddleware_RejectsPOSTWithoutToken(t *testing.T) {
	router := csrfRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/submit", nil))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":"csrf"`)
}

func TestCSRFMiddleware_AcceptsPOSTWithToken(t *testing.T) {
	router := csrfRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/csrf", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	token := rr.Header().Get(CSRFTokenHeader)

	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(""))
	req.Header.Set(CSRFTokenHeader, token)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}
