package model

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/target/dispatch-api/internal/errors"
)

const maxSubcontractorNameLen = 255

// Subcontractor is an external worker who may be assigned to jobs.
// Jobs hold a weak reference by ID; deleting a subcontractor unassigns its jobs.
type Subcontractor struct {
	ID        string    `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	Phone     string    `json:"phone"      db:"phone"`
	Email     string    `json:"email"      db:"email"`
	Region    string    `json:"region"     db:"region"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateSubcontractorRequest represents parameters to create a Subcontractor.
type CreateSubcontractorRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email,omitempty"`
	Region string `json:"region,omitempty"`
}

// Validate normalizes and validates CreateSubcontractorRequest.
func (r *CreateSubcontractorRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Region = strings.TrimSpace(r.Region)

	if r.Name == "" {
		return apperrors.ValidationField("name", "name is required")
	}
	if utf8.RuneCountInString(r.Name) > maxSubcontractorNameLen {
		return apperrors.ValidationField("name", "name cannot exceed 255 characters")
	}
	if r.Phone == "" {
		return apperrors.ValidationField("phone", "phone is required")
	}
	if !PlausiblePhone(r.Phone) {
		return apperrors.ValidationField("phone", "phone must contain 10 or 11 digits")
	}
	if r.Email != "" && !ValidEmail(r.Email) {
		return apperrors.ValidationField("email", "email is not valid")
	}
	return nil
}

// UpdateSubcontractorRequest represents parameters to update a Subcontractor.
type UpdateSubcontractorRequest struct {
	Name   *string `json:"name,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Email  *string `json:"email,omitempty"`
	Region *string `json:"region,omitempty"`
}

// HasUpdates reports whether any field is set in UpdateSubcontractorRequest.
func (r *UpdateSubcontractorRequest) HasUpdates() bool {
	return r.Name != nil || r.Phone != nil || r.Email != nil || r.Region != nil
}

// Validate validates UpdateSubcontractorRequest.
func (r *UpdateSubcontractorRequest) Validate() error {
	if !r.HasUpdates() {
		return apperrors.Validation("at least one field must be updated")
	}
	if r.Name != nil {
		n := strings.TrimSpace(*r.Name)
		if n == "" {
			return apperrors.ValidationField("name", "name cannot be empty")
		}
		if utf8.RuneCountInString(n) > maxSubcontractorNameLen {
			return apperrors.ValidationField("name", "name cannot exceed 255 characters")
		}
		*r.Name = n
	}
	if r.Phone != nil {
		p := strings.TrimSpace(*r.Phone)
		if !PlausiblePhone(p) {
			return apperrors.ValidationField("phone", "phone must contain 10 or 11 digits")
		}
		*r.Phone = p
	}
	if r.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*r.Email))
		if e != "" && !ValidEmail(e) {
			return apperrors.ValidationField("email", "email is not valid")
		}
		*r.Email = e
	}
	if r.Region != nil {
		*r.Region = strings.TrimSpace(*r.Region)
	}
	return nil
}

// ValidEmail reports whether s is a bare email address.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
