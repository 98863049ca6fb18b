package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookverse/internal/audit"
	"github.com/mrlokans/bookverse/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUser   = "auth_user"
	ContextKeyUserID = "auth_user_id"
	ContextKeyRole   = "auth_role"
)

// Error codes used in {"error": ..., "code": ...} bodies.
const (
	CodeAuthRequired = "auth_required"
	CodeForbidden    = "forbidden"
)

// UserLoader resolves the user behind a session.
type UserLoader interface {
	GetUserByID(id uint) (*entities.User, error)
}

// AccessAuditor records refused requests.
type AccessAuditor interface {
	LogAccessDenied(req audit.Request, action, resource string)
}

// Middleware resolves the current user and guards routes by permission.
type Middleware struct {
	users    UserLoader
	sessions *SessionManager
	auditor  AccessAuditor
}

// NewMiddleware creates a new authentication middleware. auditor may be nil.
func NewMiddleware(users UserLoader, sessions *SessionManager, auditor AccessAuditor) *Middleware {
	return &Middleware{
		users:    users,
		sessions: sessions,
		auditor:  auditor,
	}
}

// Handler puts the session's user into the context. It never rejects a
// request; anonymous requests simply carry no user. Sessions pointing at a
// deleted account are destroyed.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.sessions == nil {
			c.Next()
			return
		}

		userID := m.sessions.GetUserID(c.Request)
		if userID == 0 {
			c.Next()
			return
		}

		user, err := m.users.GetUserByID(userID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				_ = m.sessions.DestroySession(c.Request)
			} else {
				log.Printf("Failed to load session user %d: %v", userID, err)
			}
			c.Next()
			return
		}

		SetUser(c, user)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests with 401.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			abortJSON(c, http.StatusUnauthorized, CodeAuthRequired, ErrAuthRequired.Error())
			return
		}
		c.Next()
	}
}

// RequirePermission rejects anonymous requests with 401 and requests whose
// role lacks any of perms with 403. Refusals are audited.
func (m *Middleware) RequirePermission(perms ...Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortJSON(c, http.StatusUnauthorized, CodeAuthRequired, ErrAuthRequired.Error())
			return
		}
		for _, p := range perms {
			if !Allows(user.Role, p) {
				m.Deny(c, p.String())
				return
			}
		}
		c.Next()
	}
}

// Deny aborts with 403 and records the refusal. Handlers use it for
// ownership checks that routing alone cannot express.
func (m *Middleware) Deny(c *gin.Context, action string) {
	if m.auditor != nil {
		m.auditor.LogAccessDenied(RequestInfo(c), action, c.Request.Method+" "+c.FullPath())
	}
	abortJSON(c, http.StatusForbidden, CodeForbidden, ErrAccessDenied.Error())
}

func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}

// SetUser stores user as the request's authenticated user.
func SetUser(c *gin.Context, user *entities.User) {
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyRole, user.Role)
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *entities.User {
	if v, exists := c.Get(ContextKeyUser); exists {
		if user, ok := v.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// GetUserID returns the authenticated user's ID, or 0.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetUserRole returns the authenticated user's role, or "".
func GetUserRole(c *gin.Context) entities.Role {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.Role); ok {
			return role
		}
	}
	return ""
}

// RequestInfo describes the caller for audit records.
func RequestInfo(c *gin.Context) audit.Request {
	return audit.Request{
		UserID:    GetUserID(c),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
