package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/config"
	"github.com/mrlokans/bookverse/internal/database/dbtest"
	"github.com/mrlokans/bookverse/internal/database/users"
	"github.com/mrlokans/bookverse/internal/entities"
)

func testAuthConfig() config.Auth {
	return config.Auth{
		SessionLifetime:  24 * time.Hour,
		PBKDF2Iterations: config.MinPBKDF2Iterations,
		MaxLoginAttempts: 3,
		RateLimitWindow:  15 * time.Minute,
		LockoutDuration:  30 * time.Minute,
	}
}

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	return NewService(users.NewRepository(db.DB), testAuthConfig()), db.DB
}

func TestService_RegisterAndAuthenticate(t *testing.T) {
	svc, _ := setupService(t)

	user, err := svc.Register(Registration{
		Email:       "a@x.com",
		Username:    "alice",
		Password:    "pw1-secret",
		DisplayName: "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.RoleReader, user.Role)
	assert.NotContains(t, user.PasswordHash, "pw1-secret")

	got, err := svc.Authenticate("a@x.com", "pw1-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	require.NotNil(t, got.LastLoginAt)

	got, err = svc.Authenticate("alice", "pw1-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate("a@x.com", "pw2-secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate("nobody@x.com", "pw1-secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_DuplicateRegistrationIsConflict(t *testing.T) {
	svc, db := setupService(t)

	_, err := svc.Register(Registration{Email: "a@x.com", Username: "alice", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(Registration{Email: "a@x.com", Username: "alice2", Password: "password2"})
	assert.ErrorIs(t, err, ErrUserExists)

	// Email comparison ignores case.
	_, err = svc.Register(Registration{Email: "A@X.com", Username: "alice3", Password: "password3"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = svc.Register(Registration{Email: "b@x.com", Username: "alice", Password: "password4"})
	assert.ErrorIs(t, err, ErrUserExists)

	assert.Equal(t, int64(1), dbtest.Count(t, db, &entities.User{}, ""))
}

func TestService_RegisterRoles(t *testing.T) {
	svc, _ := setupService(t)

	author, err := svc.Register(Registration{Email: "w@x.com", Username: "writer", Password: "password1", Role: "author"})
	require.NoError(t, err)
	assert.Equal(t, entities.RoleAuthor, author.Role)

	_, err = svc.Register(Registration{Email: "s@x.com", Username: "support", Password: "password1", Role: "tech_support"})
	assert.ErrorIs(t, err, ErrRoleNotSelfRegistrable)

	_, err = svc.Register(Registration{Email: "r@x.com", Username: "root", Password: "password1", Role: "admin"})
	assert.ErrorIs(t, err, ErrRoleNotSelfRegistrable)

	_, err = svc.Register(Registration{Email: "g@x.com", Username: "god", Password: "password1", Role: "superuser"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestService_ProvisionAllowsStaffRoles(t *testing.T) {
	svc, _ := setupService(t)

	for _, role := range entities.Roles {
		user, err := svc.Provision(Registration{
			Email:    string(role) + "@x.com",
			Username: "staff_" + string(role),
			Password: "password1",
			Role:     string(role),
		})
		require.NoError(t, err, "role %s", role)
		assert.Equal(t, role, user.Role)
	}

	_, err := svc.Provision(Registration{Email: "n@x.com", Username: "norole", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestService_RegisterValidation(t *testing.T) {
	svc, _ := setupService(t)

	tests := []struct {
		name    string
		reg     Registration
		wantErr error
	}{
		{"missing username", Registration{Email: "a@x.com", Password: "password1"}, ErrUsernameRequired},
		{"missing email", Registration{Username: "alice", Password: "password1"}, ErrEmailRequired},
		{"bad username", Registration{Email: "a@x.com", Username: "a b", Password: "password1"}, ErrUsernameInvalid},
		{"bad email", Registration{Email: "not-an-email", Username: "alice", Password: "password1"}, ErrEmailInvalid},
		{"short password", Registration{Email: "a@x.com", Username: "alice", Password: "short"}, ErrPasswordTooShort},
		{"empty password", Registration{Email: "a@x.com", Username: "alice"}, ErrPasswordRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(tt.reg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_LockoutAfterRepeatedFailures(t *testing.T) {
	svc, _ := setupService(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.Register(Registration{Email: "a@x.com", Username: "alice", Password: "password1"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.Authenticate("alice", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Even the right password is refused while locked.
	_, err = svc.Authenticate("alice", "password1")
	assert.ErrorIs(t, err, ErrAccountLocked)

	now = now.Add(31 * time.Minute)
	user, err := svc.Authenticate("alice", "password1")
	require.NoError(t, err)
	assert.Zero(t, user.FailedLoginAttempts)
	assert.Nil(t, user.LockedUntil)
}

func TestService_ChangePassword(t *testing.T) {
	svc, _ := setupService(t)

	user, err := svc.Register(Registration{Email: "a@x.com", Username: "alice", Password: "password1"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(user.ID, "wrong", "password2"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.ChangePassword(user.ID, "password1", "short"), ErrPasswordTooShort)
	require.NoError(t, svc.ChangePassword(user.ID, "password1", "password2"))

	_, err = svc.Authenticate("alice", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate("alice", "password2")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(9999, "password2", "password3"), ErrUserNotFound)
}
