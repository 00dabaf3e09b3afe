package config

import (
	"fmt"
	"slices"
	"strings"
)

// AuthMode selects how /auth/* signs users in.
type AuthMode string

const (
	AuthModePassword AuthMode = "password" // bcrypt hashes on profiles
	AuthModeOAuth    AuthMode = "oauth"    // OIDC authorization code flow
	AuthModeMock     AuthMode = "mock"     // fixed dev identity, never in production
)

var authModes = []AuthMode{AuthModePassword, AuthModeOAuth, AuthModeMock}

func (a *AuthMode) UnmarshalText(text []byte) error {
	m := AuthMode(strings.ToLower(strings.TrimSpace(string(text))))
	if !slices.Contains(authModes, m) {
		return fmt.Errorf("AUTH_MODE %q: want one of %v", text, authModes)
	}
	*a = m
	return nil
}

// OAuthConfig is read from OAUTH_*. DiscoveryURL is required in oauth mode.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"dispatch"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"dispatch"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	LogoutURL    string `env:"LOGOUT_URL"`
}

// DevAuthConfig is the identity every mock login receives.
type DevAuthConfig struct {
	UserID string   `env:"USER_ID" envDefault:"dev-user"`
	Email  string   `env:"EMAIL"   envDefault:"dev@example.com"`
	Groups []string `env:"GROUPS"  envDefault:"admins"          envSeparator:";"`
}

// AuthConfig groups login, role mapping and token signing settings.
type AuthConfig struct {
	Mode AuthMode `env:"AUTH_MODE" envDefault:"password"`

	OAuth   OAuthConfig   `envPrefix:"OAUTH_"`
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// Identity-provider groups granting each role. Profiles in Postgres
	// override the mapped role once they exist.
	AdminGroup string `env:"ADMIN_GROUP" envDefault:"admins"`
	UserGroup  string `env:"USER_GROUP"  envDefault:"users"`

	// TokenSecret signs invitation tokens. Required outside development.
	TokenSecret string `env:"AUTH_TOKEN_SECRET"`
}
