package auth

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/mrlokans/bookverse/internal/config"
	"github.com/mrlokans/bookverse/internal/database"
	"github.com/mrlokans/bookverse/internal/database/users"
	"github.com/mrlokans/bookverse/internal/entities"
)

// Validation patterns
var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrUserExists             = errors.New("user already exists")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAuthRequired           = errors.New("authentication required")
	ErrAccessDenied           = errors.New("access denied")
	ErrInvalidRole            = errors.New("invalid role")
	ErrRoleNotSelfRegistrable = errors.New("role cannot be chosen at registration")
	ErrUsernameRequired       = errors.New("username is required")
	ErrEmailRequired          = errors.New("email is required")
	ErrAccountLocked          = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid        = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid           = errors.New("invalid email format")
	ErrDisplayNameTooLong     = errors.New("display name must be at most 100 characters")
)

const maxDisplayNameLength = 100

// Registration is the input to Register and Provision.
type Registration struct {
	Email       string
	Username    string
	Password    string
	DisplayName string
	Role        string
}

// Service handles account creation and credential checks.
type Service struct {
	users  *users.Repository
	config config.Auth
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(repo *users.Repository, cfg config.Auth) *Service {
	return &Service{
		users:  repo,
		config: cfg,
		now:    time.Now,
	}
}

// Register creates an account through self sign-up. Only reader and author
// roles may be chosen; an empty role means reader. The caller stays
// anonymous afterwards.
func (s *Service) Register(reg Registration) (*entities.User, error) {
	if reg.Role == "" {
		reg.Role = string(entities.RoleReader)
	}
	role, err := entities.ParseRole(reg.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRole, err)
	}
	if !role.SelfRegistrable() {
		return nil, ErrRoleNotSelfRegistrable
	}
	return s.create(reg, role)
}

// Provision creates an account with any role. It backs the create-user
// command and is the only way to create admin and tech_support accounts.
func (s *Service) Provision(reg Registration) (*entities.User, error) {
	role, err := entities.ParseRole(reg.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRole, err)
	}
	return s.create(reg, role)
}

func (s *Service) create(reg Registration, role entities.Role) (*entities.User, error) {
	username := strings.TrimSpace(reg.Username)
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	displayName := strings.TrimSpace(reg.DisplayName)

	if username == "" {
		return nil, ErrUsernameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}
	// RFC 5321 limit is 254
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return nil, ErrEmailInvalid
	}
	if len(displayName) > maxDisplayNameLength {
		return nil, ErrDisplayNameTooLong
	}
	if err := ValidatePassword(reg.Password); err != nil {
		return nil, err
	}

	if taken, err := s.users.EmailTaken(email); err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	} else if taken {
		return nil, fmt.Errorf("%w: email already registered", ErrUserExists)
	}
	if taken, err := s.users.UsernameTaken(username); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	} else if taken {
		return nil, fmt.Errorf("%w: username already taken", ErrUserExists)
	}

	credential, err := HashPassword(reg.Password, s.config.PBKDF2Iterations)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		Email:        email,
		Username:     username,
		PasswordHash: credential,
		DisplayName:  displayName,
		Role:         role,
	}
	if err := s.users.Create(user); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, database.ErrConflict) {
			return nil, fmt.Errorf("%w: %v", ErrUserExists, err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate checks credentials given an email or username.
// Implements account lockout after too many failed attempts.
func (s *Service) Authenticate(identifier, password string) (*entities.User, error) {
	user, err := s.lookup(strings.TrimSpace(identifier))
	if err != nil {
		return nil, err
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, ErrAccountLocked
	}

	if !VerifyPassword(user.PasswordHash, password) {
		s.recordFailedLogin(user, now)
		return nil, ErrInvalidCredentials
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	if err := s.users.RecordLoginSuccess(user); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	return user, nil
}

func (s *Service) lookup(identifier string) (*entities.User, error) {
	if identifier == "" {
		return nil, ErrInvalidCredentials
	}

	var (
		user *entities.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(identifier)
	} else {
		user, err = s.users.GetByUsername(identifier)
	}
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// recordFailedLogin increments the failed login counter and locks the account if threshold reached.
func (s *Service) recordFailedLogin(user *entities.User, now time.Time) {
	user.FailedLoginAttempts++

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if user.FailedLoginAttempts >= maxAttempts {
		lockout := s.config.LockoutDuration
		if lockout <= 0 {
			lockout = 30 * time.Minute
		}
		lockedUntil := now.Add(lockout)
		user.LockedUntil = &lockedUntil
		user.FailedLoginAttempts = 0
	}

	if err := s.users.RecordLoginFailure(user); err != nil {
		log.Printf("Failed to record login failure for user %d: %v", user.ID, err)
	}
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces a user's password after checking the current one.
func (s *Service) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if !VerifyPassword(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	credential, err := HashPassword(newPassword, s.config.PBKDF2Iterations)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.UpdatePassword(userID, credential)
}
