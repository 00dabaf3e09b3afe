package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/target/dispatch-api/internal/core"
	"github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
)

const (
	invitationIssuer   = "dispatch-api"
	invitationAudience = "admin-invitation"
	defaultInviteTTL   = 7 * 24 * time.Hour
)

var errInvitationUnusable = apperrors.NotFound("invitation is invalid, used or expired")

// profileProvisioner creates confirmed profiles without a role check.
type profileProvisioner interface {
	Provision(ctx context.Context, req model.CreateProfileRequest) (*model.Profile, error)
}

// InvitationConfig controls token signing and links.
type InvitationConfig struct {
	Secret []byte
	TTL    time.Duration
	// AcceptURL is the absolute signup page; the token is appended as ?token=.
	AcceptURL string
}

// InvitationServiceOptions groups dependencies for InvitationService.
type InvitationServiceOptions struct {
	Repos  InvitationRepositories
	Users  profileProvisioner
	Config InvitationConfig
	Logger *slog.Logger
	Clock  core.TimeProvider
}

// InvitationRepositories groups the stores InvitationService uses.
type InvitationRepositories struct {
	Invitations core.InvitationRepository
	Profiles    core.ProfileRepository
}

// InvitationService issues single-use admin signup invitations. Tokens are
// HS256 JWTs; only their sha256 is stored.
type InvitationService struct {
	invitations core.InvitationRepository
	profiles    core.ProfileRepository
	users       profileProvisioner
	cfg         InvitationConfig
	logger      *slog.Logger
	clock       core.TimeProvider
}

// NewInvitationService constructs a new InvitationService.
func NewInvitationService(opts InvitationServiceOptions) (*InvitationService, error) {
	if opts.Repos.Invitations == nil {
		return nil, errors.New("InvitationRepository is required")
	}
	if opts.Repos.Profiles == nil {
		return nil, errors.New("ProfileRepository is required")
	}
	if opts.Users == nil {
		return nil, errors.New("profile provisioner is required")
	}
	if len(opts.Config.Secret) < 32 {
		return nil, errors.New("invitation secret must be at least 32 bytes")
	}
	cfg := opts.Config
	if cfg.TTL <= 0 {
		cfg.TTL = defaultInviteTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &InvitationService{
		invitations: opts.Repos.Invitations,
		profiles:    opts.Repos.Profiles,
		users:       opts.Users,
		cfg:         cfg,
		logger:      logger.With("component", "invitation_service"),
		clock:       clock,
	}, nil
}

type invitationClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Create issues an invitation for req.Email. The token is returned once and
// never stored. Admin only.
func (s *InvitationService) Create(
	ctx context.Context,
	actor auth.Actor,
	req *model.CreateInvitationRequest,
) (*model.IssuedInvitation, error) {
	if err := auth.AssertRole(actor, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.Issue(ctx, req.Email, actor.Label())
}

// Issue signs and stores an invitation without a role check. The admin CLI uses it directly.
func (s *InvitationService) Issue(ctx context.Context, email, invitedBy string) (*model.IssuedInvitation, error) {
	now := s.clock.Now().UTC()
	expires := now.Add(s.cfg.TTL)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, invitationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    invitationIssuer,
			Audience:  jwt.ClaimStrings{invitationAudience},
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email: email,
	}).SignedString(s.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign invitation: %w", err)
	}

	inv, err := s.invitations.Create(ctx, core.CreateInvitationParams{
		Email:     email,
		InvitedBy: invitedBy,
		TokenHash: hashToken(token),
		ExpiresAt: expires,
	})
	if err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	s.logger.InfoContext(ctx, "invitation issued", "invitation_id", inv.ID, "invited_by", invitedBy)

	return &model.IssuedInvitation{
		Invitation: *inv,
		Token:      token,
		AcceptURL:  s.acceptURL(token),
	}, nil
}

func (s *InvitationService) acceptURL(token string) string {
	if s.cfg.AcceptURL == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(s.cfg.AcceptURL, "?") {
		sep = "&"
	}
	return s.cfg.AcceptURL + sep + "token=" + url.QueryEscape(token)
}

// List returns every invitation, newest first. Admin only.
func (s *InvitationService) List(ctx context.Context, actor auth.Actor) ([]model.AdminInvitation, error) {
	if err := auth.AssertRole(actor, auth.RoleAdmin); err != nil {
		return nil, err
	}
	invs, err := s.invitations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}

// Revoke expires a pending invitation immediately. Admin only.
func (s *InvitationService) Revoke(ctx context.Context, actor auth.Actor, id string) (*model.AdminInvitation, error) {
	if err := auth.AssertRole(actor, auth.RoleAdmin); err != nil {
		return nil, err
	}
	inv, err := s.invitations.Revoke(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("revoke invitation: %w", err)
	}
	s.logger.InfoContext(ctx, "invitation revoked", "invitation_id", id, "actor", actor.Label())
	return inv, nil
}

// Validate checks the token signature and that the stored invitation is still pending.
func (s *InvitationService) Validate(ctx context.Context, token string) (*model.AdminInvitation, error) {
	claims, err := s.parse(token)
	if err != nil {
		s.logger.DebugContext(ctx, "invitation token rejected", "error", err)
		return nil, errInvitationUnusable
	}
	inv, err := s.invitations.GetByTokenHash(ctx, hashToken(token))
	if apperrors.IsNotFound(err) {
		return nil, errInvitationUnusable
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if inv.Status(s.clock.Now()) != model.InvitationStatusPending || !strings.EqualFold(inv.Email, claims.Email) {
		return nil, errInvitationUnusable
	}
	return inv, nil
}

func (s *InvitationService) parse(token string) (*invitationClaims, error) {
	claims := &invitationClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(invitationIssuer),
		jwt.WithAudience(invitationAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Accept consumes the invitation and creates the invited admin. A second
// accept of the same token fails.
func (s *InvitationService) Accept(ctx context.Context, req *model.AcceptInvitationRequest) (*model.Profile, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	inv, err := s.Validate(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	switch _, err := s.profiles.GetByEmail(ctx, inv.Email); {
	case err == nil:
		return nil, apperrors.ValidationField("email", "an account with this email already exists")
	case !apperrors.IsNotFound(err):
		return nil, fmt.Errorf("get user: %w", err)
	}

	used, err := s.invitations.MarkUsed(ctx, inv.ID)
	if err != nil {
		if apperrors.IsConflict(err) {
			return nil, errInvitationUnusable
		}
		return nil, fmt.Errorf("consume invitation: %w", err)
	}

	p, err := s.users.Provision(ctx, model.CreateProfileRequest{
		Email:       inv.Email,
		DisplayName: req.DisplayName,
		Role:        model.ProfileRoleAdmin,
		Password:    req.Password,
	})
	if err != nil {
		s.reopen(ctx, used)
		return nil, err
	}
	s.logger.InfoContext(ctx, "invitation accepted", "invitation_id", inv.ID, "user_id", p.ID)
	return p, nil
}

// reopen gives the invitation back after signup failed so the invitee can
// retry with the same link.
func (s *InvitationService) reopen(ctx context.Context, used *model.AdminInvitation) {
	if used == nil || used.UsedAt == nil {
		return
	}
	if err := s.invitations.ReleaseUse(context.WithoutCancel(ctx), used.ID, *used.UsedAt); err != nil {
		s.logger.ErrorContext(ctx, "invitation left consumed after failed signup",
			"invitation_id", used.ID, "error", err)
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
