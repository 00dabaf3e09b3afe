// Package auth holds the identity, session and role types shared by the
// HTTP layer, the auth service and every role check in the service layer.
package auth

import "time"

// Role is the access level of a signed-in principal.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// Identity is what a login path (OIDC, dev provider or password) yields
// before a session exists.
type Identity struct {
	UserID    string
	FirstName string
	LastName  string
	Email     string
	Groups    []string
	ExpiresAt time.Time
}

// Session is stored server-side under an opaque ID carried in the session cookie.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsGuest reports whether the session carries no dispatch role.
func (s Session) IsGuest() bool { return s.Role == RoleGuest }

// Actor returns the principal acting under this session.
func (s Session) Actor() Actor {
	return Actor{ID: s.UserID, Email: s.Email, Role: s.Role}
}
