package auth

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookverse/internal/audit"
	"github.com/mrlokans/bookverse/internal/config"
	"github.com/mrlokans/bookverse/internal/entities"
)

// Auditor records authentication outcomes and refusals.
type Auditor interface {
	AccessAuditor
	LogAuth(req audit.Request, action, description string, success bool)
}

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	rateLimiter    *RateLimiter
	auditor        Auditor

	// OnRegister, when set, is called after every successful registration.
	OnRegister func(user *entities.User)
}

// NewAuthController creates a new authentication controller. auditor may be
// nil.
func NewAuthController(service *Service, sessionManager *SessionManager, auditor Auditor, cfg config.Auth) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		auditor:        auditor,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRoutes) {
	router.POST("/register", ac.Register)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/session", ac.Session)
	router.GET("/csrf", CSRFTokenHandler)
}

type registerRequest struct {
	Email       string `form:"email" json:"email"`
	Username    string `form:"username" json:"username"`
	Password    string `form:"password" json:"password"`
	DisplayName string `form:"display_name" json:"display_name"`
	Role        string `form:"role" json:"role"`
}

// Register creates an account. The caller stays logged out.
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	user, err := ac.service.Register(Registration{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
	if err != nil {
		ac.logAuth(c, "register", err.Error(), false)
		status, code := registrationErrorStatus(err)
		if status == http.StatusInternalServerError {
			log.Printf("Failed to register %q: %v", req.Username, err)
			abortJSON(c, status, code, "registration failed")
			return
		}
		abortJSON(c, status, code, err.Error())
		return
	}

	ac.logAuth(c, "register", "registered as "+string(user.Role), true)
	if ac.OnRegister != nil {
		ac.OnRegister(user)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "registration successful, please log in",
		"user":    user,
	})
}

func registrationErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrUserExists):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ErrRoleNotSelfRegistrable):
		return http.StatusForbidden, "role_not_allowed"
	case errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrUsernameRequired),
		errors.Is(err, ErrUsernameInvalid),
		errors.Is(err, ErrEmailRequired),
		errors.Is(err, ErrEmailInvalid),
		errors.Is(err, ErrDisplayNameTooLong),
		errors.Is(err, ErrPasswordRequired),
		errors.Is(err, ErrPasswordTooShort):
		return http.StatusBadRequest, "validation"
	}
	return http.StatusInternalServerError, "internal"
}

type loginRequest struct {
	Login    string `form:"login" json:"login"`
	Email    string `form:"email" json:"email"`
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func (r loginRequest) identifier() string {
	switch {
	case r.Login != "":
		return r.Login
	case r.Email != "":
		return r.Email
	}
	return r.Username
}

// Login verifies credentials and starts a session.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	identifier := req.identifier()
	clientIP := c.ClientIP()

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, identifier); !allowed {
		c.Header("Retry-After", strconv.Itoa(int(retryAfter/time.Second)+1))
		abortJSON(c, http.StatusTooManyRequests, "rate_limited", "too many login attempts, please try again later")
		return
	}

	user, err := ac.service.Authenticate(identifier, req.Password)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, identifier)
		ac.logAuth(c, "login", "login failed for "+identifier, false)

		switch {
		case errors.Is(err, ErrAccountLocked):
			abortJSON(c, http.StatusForbidden, "account_locked", err.Error())
		case errors.Is(err, ErrInvalidCredentials):
			abortJSON(c, http.StatusUnauthorized, "invalid_credentials", "invalid email/username or password")
		default:
			log.Printf("Failed to authenticate %q: %v", identifier, err)
			abortJSON(c, http.StatusInternalServerError, "internal", "login failed")
		}
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, identifier)

	if err := ac.sessionManager.CreateSession(c.Request, user, time.Now()); err != nil {
		log.Printf("Failed to create session for user %d: %v", user.ID, err)
		abortJSON(c, http.StatusInternalServerError, "internal", "failed to create session")
		return
	}

	SetUser(c, user)
	ac.logAuth(c, "login", "logged in", true)

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout destroys the session.
func (ac *AuthController) Logout(c *gin.Context) {
	userID := GetUserID(c)
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		log.Printf("Failed to destroy session: %v", err)
	}
	if userID != 0 {
		ac.logAuth(c, "logout", "logged out", true)
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Session reports who the caller is.
func (ac *AuthController) Session(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          user,
		"session":       ac.sessionManager.GetSessionData(c.Request),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
}

// ChangePassword replaces the caller's password. Mount it behind RequireAuth.
func (ac *AuthController) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	err := ac.service.ChangePassword(GetUserID(c), req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		ac.logAuth(c, "change_password", "password changed", true)
		c.JSON(http.StatusOK, gin.H{"message": "password changed"})
	case errors.Is(err, ErrInvalidCredentials):
		ac.logAuth(c, "change_password", "current password rejected", false)
		abortJSON(c, http.StatusUnauthorized, "invalid_credentials", "current password is incorrect")
	case errors.Is(err, ErrPasswordRequired), errors.Is(err, ErrPasswordTooShort):
		abortJSON(c, http.StatusBadRequest, "validation", err.Error())
	default:
		log.Printf("Failed to change password for user %d: %v", GetUserID(c), err)
		abortJSON(c, http.StatusInternalServerError, "internal", "failed to change password")
	}
}

func (ac *AuthController) logAuth(c *gin.Context, action, description string, success bool) {
	if ac.auditor != nil {
		ac.auditor.LogAuth(RequestInfo(c), action, description, success)
	}
}
