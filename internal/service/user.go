package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/target/dispatch-api/internal/core"
	"github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
)

var errInvalidCredentials = apperrors.Unauthorized("invalid email or password")

// UserServiceOptions groups dependencies for UserService.
type UserServiceOptions struct {
	Profiles core.ProfileRepository // Required
	// BcryptCost defaults to bcrypt.DefaultCost. Tests lower it to bcrypt.MinCost.
	BcryptCost int
	Logger     *slog.Logger
}

// UserService manages dashboard users: provisioning, role changes, password
// resets and password authentication. The last active admin can never be
// removed or demoted.
type UserService struct {
	profiles core.ProfileRepository
	cost     int
	logger   *slog.Logger
	// dummyHash equalises timing between unknown emails and wrong passwords.
	dummyHash []byte
}

// NewUserService constructs a new UserService.
func NewUserService(opts UserServiceOptions) *UserService {
	if opts.Profiles == nil {
		panic("ProfileRepository is required")
	}
	cost := opts.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("dispatch-timing-guard"), cost)
	return &UserService{
		profiles:  opts.Profiles,
		cost:      cost,
		logger:    logger.With("component", "user_service"),
		dummyHash: dummy,
	}
}

// List returns every user. Admin only.
func (s *UserService) List(ctx context.Context, actor auth.Actor) ([]model.Profile, error) {
	if err := auth.AssertRole(actor, auth.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Create adds a confirmed user with a password. Admin only.
func (s *UserService) Create(ctx context.Context, actor auth.Actor, req *model.CreateProfileRequest) (*model.Profile, error) {
	if err := auth.AssertRole(actor, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	p, err := s.Provision(ctx, *req)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user created", "user_id", p.ID, "role", p.Role, "actor", actor.Label())
	return p, nil
}

// Provision validates req, hashes its password and stores a confirmed
// profile without a role check. It backs invitation signup and the admin CLI.
func (s *UserService) Provision(ctx context.Context, req model.CreateProfileRequest) (*model.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.Create(ctx, core.CreateProfileParams{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		Role:         req.Role,
		Confirmed:    true,
		PasswordHash: &hash,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return p, nil
}

// Delete removes a user. Admins cannot delete themselves or the last admin.
func (s *UserService) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if err := auth.AssertRole(actor, auth.RoleAdmin); err != nil {
		return err
	}
	if id == actor.ID {
		return apperrors.Forbidden("you cannot delete your own account")
	}
	target, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if err := s.guardLastAdmin(ctx, target); err != nil {
		return err
	}
	deleted, err := s.profiles.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !deleted {
		return apperrors.NotFoundf("user %q not found", id)
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", id, "actor", actor.Label())
	return nil
}

// Promote grants the admin role.
func (s *UserService) Promote(ctx context.Context, actor auth.Actor, id string) (*model.Profile, error) {
	return s.setRole(ctx, actor, id, model.ProfileRoleAdmin)
}

// Demote revokes the admin role. The last active admin cannot be demoted.
func (s *UserService) Demote(ctx context.Context, actor auth.Actor, id string) (*model.Profile, error) {
	return s.setRole(ctx, actor, id, model.ProfileRoleUser)
}

func (s *UserService) setRole(ctx context.Context, actor auth.Actor, id string, role model.ProfileRole) (*model.Profile, error) {
	if err := auth.AssertRole(actor, auth.RoleAdmin); err != nil {
		return nil, err
	}
	target, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if target.Role == role {
		return target, nil
	}
	if role != model.ProfileRoleAdmin {
		if err := s.guardLastAdmin(ctx, target); err != nil {
			return nil, err
		}
	}
	p, err := s.profiles.SetRole(ctx, id, role)
	if err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	s.logger.InfoContext(ctx, "user role changed", "user_id", id, "role", role, "actor", actor.Label())
	return p, nil
}

func (s *UserService) guardLastAdmin(ctx context.Context, target *model.Profile) error {
	if target.Role != model.ProfileRoleAdmin || !target.Active {
		return nil
	}
	admins, err := s.profiles.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins <= 1 {
		return apperrors.Conflict("the last admin cannot be removed or demoted")
	}
	return nil
}

// ResetPassword replaces a user's password. Admin only.
func (s *UserService) ResetPassword(ctx context.Context, actor auth.Actor, id, password string) error {
	if err := auth.AssertRole(actor, auth.RoleAdmin); err != nil {
		return err
	}
	if err := model.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.profiles.SetPasswordHash(ctx, id, hash); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	s.logger.InfoContext(ctx, "user password reset", "user_id", id, "actor", actor.Label())
	return nil
}

// Authenticate checks email and password and records the login. Every
// failure returns the same unauthorized error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.Profile, error) {
	p, err := s.profiles.GetByEmail(ctx, email)
	if apperrors.IsNotFound(err) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !p.Active || p.PasswordHash == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*p.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.WarnContext(ctx, "stored password hash unusable", "user_id", p.ID, "error", err)
		}
		return nil, errInvalidCredentials
	}
	s.touch(ctx, p.ID)
	return p, nil
}

// Lookup resolves an externally authenticated email to an active profile.
func (s *UserService) Lookup(ctx context.Context, email string) (*model.Profile, error) {
	p, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, apperrors.NotFoundf("user %q not found", email)
	}
	s.touch(ctx, p.ID)
	return p, nil
}

func (s *UserService) touch(ctx context.Context, id string) {
	if err := s.profiles.TouchLogin(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to record login", "user_id", id, "error", err)
	}
}

func (s *UserService) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}
