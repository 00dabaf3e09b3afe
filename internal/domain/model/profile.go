package model

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/target/dispatch-api/internal/errors"
)

const (
	minPasswordLen = 10
	maxPasswordLen = 72 // bcrypt input limit
)

// ProfileRole is the persisted role of a dashboard user.
type ProfileRole string

const (
	ProfileRoleAdmin ProfileRole = "admin"
	ProfileRoleUser  ProfileRole = "user"
)

// Valid reports whether the profile role is supported.
func (r ProfileRole) Valid() bool {
	return r == ProfileRoleAdmin || r == ProfileRoleUser
}

// Profile is a dashboard user. Role gates mutation rights.
type Profile struct {
	ID           string      `json:"id"                      db:"id"`
	Email        string      `json:"email"                   db:"email"`
	DisplayName  string      `json:"display_name"            db:"display_name"`
	Role         ProfileRole `json:"role"                    db:"role"`
	Active       bool        `json:"active"                  db:"active"`
	Confirmed    bool        `json:"confirmed"               db:"confirmed"`
	PasswordHash *string     `json:"-"                       db:"password_hash"`
	LastLoginAt  *time.Time  `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time   `json:"created_at"              db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"              db:"updated_at"`
}

// CreateProfileRequest represents parameters to create a user.
type CreateProfileRequest struct {
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	Role        ProfileRole `json:"role,omitempty"`
	Password    string      `json:"password"`
}

// Validate normalizes and validates CreateProfileRequest.
func (r *CreateProfileRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if r.Email == "" || !ValidEmail(r.Email) {
		return apperrors.ValidationField("email", "a valid email is required")
	}
	if r.DisplayName == "" {
		r.DisplayName = r.Email
	}
	if r.Role == "" {
		r.Role = ProfileRoleUser
	}
	if !r.Role.Valid() {
		return apperrors.ValidationField("role", "role must be admin or user")
	}
	return ValidatePassword(r.Password)
}

// ValidatePassword enforces the password policy.
func ValidatePassword(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < minPasswordLen {
		return apperrors.ValidationField("password", "password must be at least 10 characters")
	}
	if len(pw) > maxPasswordLen {
		return apperrors.ValidationField("password", "password cannot exceed 72 bytes")
	}
	return nil
}
