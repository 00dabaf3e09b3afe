package bootstrap

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/dispatch-api/config"
	"github.com/target/dispatch-api/internal/adapters/authroles"
	"github.com/target/dispatch-api/internal/adapters/devauth"
	"github.com/target/dispatch-api/internal/adapters/oidc"
	redisadapter "github.com/target/dispatch-api/internal/adapters/redis"
	"github.com/target/dispatch-api/internal/ports"
	"github.com/target/dispatch-api/internal/service"
)

const sessionKeyPrefix = "dispatch:session:"

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient
	SessionTTL  time.Duration
	// Users backs password login and profile role lookups. Optional.
	Users  *service.UserService
	Logger *slog.Logger
}

// BuildAuthService creates an auth service for the configured mode. Password
// login is available in every mode when Users is set; oauth and mock modes add
// an external provider. Returns nil when sessions cannot be stored.
func BuildAuthService(cfg AuthConfig) *service.AuthService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RedisClient == nil {
		logger.Warn("auth service disabled: redis client not configured", "mode", cfg.Auth.Mode)
		return nil
	}

	opts := service.AuthServiceOptions{
		Sessions:   redisadapter.NewSessionStoreWithPrefix(cfg.RedisClient, sessionKeyPrefix),
		Roles:      authroles.StaticRoleMapper{AdminGroup: cfg.Auth.AdminGroup, UserGroup: cfg.Auth.UserGroup},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}
	if cfg.Users != nil {
		opts.Users = cfg.Users
	}

	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		opts.Provider = buildDevProvider(cfg.Auth.DevAuth, logger)
	case config.AuthModeOAuth:
		opts.Provider = buildOIDCProvider(cfg.Auth.OAuth, logger)
	case config.AuthModePassword:
	}

	if opts.Provider == nil && opts.Users == nil {
		logger.Warn("auth service disabled: no login method available", "mode", cfg.Auth.Mode)
		return nil
	}
	return service.NewAuthService(opts)
}

//nolint:ireturn // nil reports an unusable provider.
func buildDevProvider(cfg config.DevAuthConfig, logger *slog.Logger) ports.AuthProvider {
	prov, err := devauth.NewProvider(devauth.Config{
		UserID: cfg.UserID,
		Email:  cfg.Email,
		Groups: cfg.Groups,
	})
	if err != nil {
		logger.Warn("failed to create dev auth provider", "error", err)
		return nil
	}
	return prov
}

//nolint:ireturn // nil reports an unusable provider.
func buildOIDCProvider(cfg config.OAuthConfig, logger *slog.Logger) ports.AuthProvider {
	if cfg.DiscoveryURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		logger.Warn("oauth mode selected but required config missing; external login disabled",
			"discovery_url_empty", cfg.DiscoveryURL == "",
			"client_id_empty", cfg.ClientID == "",
			"client_secret_empty", cfg.ClientSecret == "",
		)
		return nil
	}

	prov, err := oidc.NewProvider(oidc.ProviderConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scope:        cfg.Scope,
		DiscoveryURL: cfg.DiscoveryURL,
		LogoutURL:    cfg.LogoutURL,
	})
	if err != nil {
		logger.Warn("failed to create OIDC provider", "error", err)
		return nil
	}
	return prov
}
