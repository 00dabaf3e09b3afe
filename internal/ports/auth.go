// Package ports declares the auth boundaries the service layer depends on.
// Adapters under internal/adapters implement them.
package ports

import (
	"context"

	domainauth "github.com/target/dispatch-api/internal/domain/auth"
)

// BeginInput carries the post-login destination.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput is the callback payload plus the state and nonce issued by Begin.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// AuthProvider is an external or development login flow. The password login
// path does not go through it.
type AuthProvider interface {
	// Begin returns the provider URL to redirect to and the state and nonce
	// the callback must echo.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)
	// Exchange verifies the callback and returns the signed-in identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// SessionStore keeps sessions keyed by their opaque ID. Get fails for
// missing or expired sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RoleMapper turns IdP groups into a dispatch role.
type RoleMapper interface {
	Map(groups []string) domainauth.Role
}
