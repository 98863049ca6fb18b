package entities

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles. A role is fixed when the account
// is created.
type Role string

const (
	RoleReader      Role = "reader"
	RoleAuthor      Role = "author"
	RoleAdmin       Role = "admin"
	RoleTechSupport Role = "tech_support"
)

// Roles lists every valid role.
var Roles = []Role{RoleReader, RoleAuthor, RoleAdmin, RoleTechSupport}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleReader, RoleAuthor, RoleAdmin, RoleTechSupport:
		return true
	}
	return false
}

// SelfRegistrable reports whether the role can be chosen at sign-up.
// Staff roles are provisioned out of band.
func (r Role) SelfRegistrable() bool {
	switch r {
	case RoleReader, RoleAuthor:
		return true
	case RoleAdmin, RoleTechSupport:
		return false
	}
	return false
}

type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username     string `gorm:"uniqueIndex;size:100;not null" json:"username"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	DisplayName  string `gorm:"size:100" json:"display_name"`
	Role         Role   `gorm:"size:20;not null;default:'reader'" json:"role"`
	AvatarKey    string `gorm:"size:255" json:"-"`

	// Engagement counters, maintained by the read tracker.
	ReadingStreak int `gorm:"not null;default:0" json:"reading_streak"`
	BooksRead     int `gorm:"not null;default:0" json:"books_read"`

	FailedLoginAttempts int        `gorm:"not null;default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

func (u *User) HasAvatar() bool {
	return u.AvatarKey != ""
}

func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
