package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/target/dispatch-api/internal/core"
	domainauth "github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
	"github.com/target/dispatch-api/internal/ports"
)

const defaultSessionTTL = 12 * time.Hour

// userDirectory resolves dashboard users for login flows.
type userDirectory interface {
	Authenticate(ctx context.Context, email, password string) (*model.Profile, error)
	Lookup(ctx context.Context, email string) (*model.Profile, error)
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.AuthProvider // Optional: external IdP login
	Sessions ports.SessionStore // Required
	Roles    ports.RoleMapper   // Optional: IdP groups to role
	Users    userDirectory      // Optional: password login and profile roles
	// SessionTTL bounds password sessions and caps IdP sessions.
	SessionTTL time.Duration
	Clock      core.TimeProvider
	Logger     *slog.Logger
}

// AuthService orchestrates authentication flows by coordinating provider, role mapping, and session persistence.
type AuthService struct {
	provider   ports.AuthProvider
	sessions   ports.SessionStore
	roles      ports.RoleMapper
	users      userDirectory
	sessionTTL time.Duration
	clock      core.TimeProvider
	logger     *slog.Logger
}

var (
	errSessionExpired     = apperrors.Unauthorized("session expired")
	errProviderDisabled   = apperrors.NotFound("external login is not enabled")
	errPasswordDisabled   = apperrors.NotFound("password login is not enabled")
	errMissingCredentials = apperrors.Validation("email and password are required")
)

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Sessions == nil {
		panic("SessionStore is required")
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		provider:   opts.Provider,
		sessions:   opts.Sessions,
		roles:      opts.Roles,
		users:      opts.Users,
		sessionTTL: ttl,
		clock:      clock,
		logger:     logger.With("component", "auth_service"),
	}
}

// ProviderEnabled reports whether external IdP login is configured.
func (s *AuthService) ProviderEnabled() bool { return s.provider != nil }

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if s.provider == nil {
		return nil, errProviderDisabled
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{
		AuthURL: authURL,
		State:   state,
		Nonce:   nonce,
	}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLoginResult contains the result of completing a login flow.
type CompleteLoginResult struct {
	Session domainauth.Session
}

// CompleteLogin exchanges the code for an identity and persists a session.
// When the identity's email matches an active profile, the profile's role
// and ID win over the group mapping.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	if s.provider == nil {
		return nil, errProviderDisabled
	}
	if input.Code == "" {
		return nil, apperrors.Validation("authorization code is required")
	}
	if input.State == "" {
		return nil, apperrors.Validation("state parameter is required")
	}
	if input.Nonce == "" {
		return nil, apperrors.Validation("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	role := domainauth.RoleGuest
	if s.roles != nil {
		role = s.roles.Map(identity.Groups)
	}

	session := domainauth.Session{
		ID:        generateSessionID(),
		UserID:    identity.UserID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     strings.ToLower(identity.Email),
		Role:      role,
		ExpiresAt: s.capExpiry(identity.ExpiresAt),
	}
	s.applyProfile(ctx, &session)

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &CompleteLoginResult{Session: session}, nil
}

func (s *AuthService) applyProfile(ctx context.Context, session *domainauth.Session) {
	if s.users == nil || session.Email == "" {
		return
	}
	p, err := s.users.Lookup(ctx, session.Email)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.WarnContext(ctx, "profile lookup failed during login", "error", err)
		}
		return
	}
	session.UserID = p.ID
	session.Role = domainauth.Role(p.Role)
}

// PasswordLogin authenticates a stored profile and persists a session.
func (s *AuthService) PasswordLogin(ctx context.Context, email, password string) (*CompleteLoginResult, error) {
	if s.users == nil {
		return nil, errPasswordDisabled
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errMissingCredentials
	}

	p, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	first, last, _ := strings.Cut(p.DisplayName, " ")
	session := domainauth.Session{
		ID:        generateSessionID(),
		UserID:    p.ID,
		FirstName: first,
		LastName:  last,
		Email:     p.Email,
		Role:      domainauth.Role(p.Role),
		ExpiresAt: s.clock.Now().Add(s.sessionTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &CompleteLoginResult{Session: session}, nil
}

func (s *AuthService) capExpiry(idpExpiry time.Time) time.Time {
	limit := s.clock.Now().Add(s.sessionTTL)
	if idpExpiry.IsZero() || idpExpiry.After(limit) {
		return limit
	}
	return idpExpiry
}

// GetSession retrieves a session by ID.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, apperrors.Unauthorized("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if s.clock.Now().After(session.ExpiresAt) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(errSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, errSessionExpired
	}

	return &session, nil
}

// Logout removes a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// generateSessionID creates a cryptographically secure random session ID.
func generateSessionID() string {
	return uuid.NewString()
}
