package model

import (
	"strings"
	"time"

	apperrors "github.com/target/dispatch-api/internal/errors"
)

// InvitationStatus is derived from an invitation's used and expiry markers.
type InvitationStatus string

const (
	InvitationStatusPending InvitationStatus = "pending"
	InvitationStatusUsed    InvitationStatus = "used"
	InvitationStatusExpired InvitationStatus = "expired"
)

// AdminInvitation grants one signup as an admin. It is consumed exactly once
// or revoked by forcing ExpiresAt into the past.
type AdminInvitation struct {
	ID        string     `json:"id"                db:"id"`
	Email     string     `json:"email"             db:"email"`
	InvitedBy string     `json:"invited_by"        db:"invited_by"`
	TokenHash string     `json:"-"                 db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at"        db:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty" db:"used_at"`
	CreatedAt time.Time  `json:"created_at"        db:"created_at"`
}

// Status derives the invitation status at now.
func (i AdminInvitation) Status(now time.Time) InvitationStatus {
	switch {
	case i.UsedAt != nil:
		return InvitationStatusUsed
	case !now.Before(i.ExpiresAt):
		return InvitationStatusExpired
	default:
		return InvitationStatusPending
	}
}

// CreateInvitationRequest represents parameters to invite an admin.
type CreateInvitationRequest struct {
	Email string `json:"email"`
}

// Validate normalizes and validates CreateInvitationRequest.
func (r *CreateInvitationRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" || !ValidEmail(r.Email) {
		return apperrors.ValidationField("email", "a valid email is required")
	}
	return nil
}

// AcceptInvitationRequest completes signup with an invitation token.
type AcceptInvitationRequest struct {
	Token       string `json:"token"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// Validate validates AcceptInvitationRequest.
func (r *AcceptInvitationRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if r.Token == "" {
		return apperrors.ValidationField("token", "token is required")
	}
	return ValidatePassword(r.Password)
}

// IssuedInvitation is returned once at creation; Token is never stored.
type IssuedInvitation struct {
	Invitation AdminInvitation `json:"invitation"`
	Token      string          `json:"token"`
	AcceptURL  string          `json:"accept_url"`
}
