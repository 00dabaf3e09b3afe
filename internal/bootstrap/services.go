package bootstrap

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/dispatch-api/config"
	"github.com/target/dispatch-api/internal/data"
	httpx "github.com/target/dispatch-api/internal/http"
	"github.com/target/dispatch-api/internal/observability/statsd"
	"github.com/target/dispatch-api/internal/service"
)

const (
	notifyCacheKeyPrefix = "dispatch:notify:"
	minTokenSecretLen    = 32
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs           *service.JobService
	Dashboard      *service.DashboardService
	Export         *service.ExportService
	Subcontractors *service.SubcontractorService
	Users          *service.UserService
	Invitations    *service.InvitationService
	Notifications  *service.NotificationService
	// Auth is nil when Redis is unavailable; the HTTP API then serves only
	// public routes.
	Auth    *service.AuthService
	Metrics *statsd.Client
	// Readiness holds the dependency probes served at /readyz.
	Readiness map[string]httpx.ReadinessCheck
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient // Optional
	Logger      *slog.Logger
}

// serviceRepositories groups the Postgres and Redis adapters backing service ports.
type serviceRepositories struct {
	Jobs           *data.JobRepo
	Updates        *data.JobUpdateRepo
	Subcontractors *data.SubcontractorRepo
	Profiles       *data.ProfileRepo
	Invitations    *data.InvitationRepo
	Cache          *data.RedisCacheRepo
}

func buildRepositories(db *sql.DB, rdb redis.UniversalClient) serviceRepositories {
	repos := serviceRepositories{
		Jobs:           data.NewJobRepo(db),
		Updates:        data.NewJobUpdateRepo(db),
		Subcontractors: data.NewSubcontractorRepo(db),
		Profiles:       data.NewProfileRepo(db),
		Invitations:    data.NewInvitationRepo(db),
	}
	if rdb != nil {
		repos.Cache = data.NewRedisCacheRepoWithPrefix(rdb, notifyCacheKeyPrefix)
	}
	return repos
}

// NewServices wires repositories, sinks and services from configuration.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service config is required")
	}
	if deps.DB == nil {
		return nil, errors.New("database connection is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repos := buildRepositories(deps.DB, deps.RedisClient)
	metrics := BuildMetricsClient(cfg.Metrics, logger)

	notifications := newNotificationService(cfg, repos, metrics, logger)

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repos: service.JobRepositories{
			Jobs:           repos.Jobs,
			Updates:        repos.Updates,
			Subcontractors: repos.Subcontractors,
		},
		Notifier: notifications,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire job service: %w", err)
	}

	dash := service.NewDashboardService(service.DashboardServiceOptions{
		Jobs:           repos.Jobs,
		Subcontractors: repos.Subcontractors,
		Config: service.DashboardConfig{
			Location: cfg.Dashboard.Location(),
			MaxJobs:  cfg.Dashboard.MaxJobs,
		},
	})

	users := service.NewUserService(service.UserServiceOptions{
		Profiles: repos.Profiles,
		Logger:   logger,
	})

	invitations, err := newInvitationService(cfg, repos, users, logger)
	if err != nil {
		return nil, err
	}

	var auth *service.AuthService
	if deps.RedisClient != nil {
		auth = BuildAuthService(AuthConfig{
			Auth:        cfg.Auth,
			RedisClient: deps.RedisClient,
			SessionTTL:  cfg.Redis.SessionTTL,
			Users:       users,
			Logger:      logger,
		})
	}

	return &ServiceContainer{
		Jobs:           jobs,
		Dashboard:      dash,
		Export:         service.NewExportService(service.ExportServiceOptions{Jobs: dash, Subcontractors: repos.Subcontractors}),
		Subcontractors: service.NewSubcontractorService(service.SubcontractorServiceOptions{Repo: repos.Subcontractors, Logger: logger}),
		Users:          users,
		Invitations:    invitations,
		Notifications:  notifications,
		Auth:           auth,
		Metrics:        metrics,
		Readiness:      readinessChecks(deps.DB, repos.Cache),
	}, nil
}

func readinessChecks(db *sql.DB, cache *data.RedisCacheRepo) map[string]httpx.ReadinessCheck {
	checks := map[string]httpx.ReadinessCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if cache != nil {
		checks["redis"] = cache.Health
	}
	return checks
}

func newNotificationService(
	cfg *config.AppConfig,
	repos serviceRepositories,
	metrics *statsd.Client,
	logger *slog.Logger,
) *service.NotificationService {
	sinks, err := BuildNotificationSinks(cfg.Notify)
	if err != nil {
		// A misconfigured sink must not keep dispatchers from working.
		logger.Error("notification sink disabled", "error", err)
	}
	if cfg.Notify.Enabled && len(sinks) == 0 {
		logger.Warn("notifications enabled but no sink is configured")
	}

	opts := service.NotificationServiceOptions{
		Sinks: sinks,
		Config: service.NotificationConfig{
			PortalOrigin: cfg.HTTP.BaseURL,
			SinkTimeout:  cfg.Notify.Timeout,
			DedupeWindow: cfg.Notify.DedupeWindow,
		},
		Logger:  logger,
		Metrics: metrics,
	}
	if repos.Cache != nil {
		opts.Cache = repos.Cache
	}
	return service.NewNotificationService(opts)
}

func newInvitationService(
	cfg *config.AppConfig,
	repos serviceRepositories,
	users *service.UserService,
	logger *slog.Logger,
) (*service.InvitationService, error) {
	secret, err := invitationSecret(cfg, logger)
	if err != nil {
		return nil, err
	}
	svc, err := service.NewInvitationService(service.InvitationServiceOptions{
		Repos: service.InvitationRepositories{
			Invitations: repos.Invitations,
			Profiles:    repos.Profiles,
		},
		Users: users,
		Config: service.InvitationConfig{
			Secret:    secret,
			TTL:       cfg.Invitations.TTL,
			AcceptURL: cfg.HTTP.BaseURL + cfg.Invitations.AcceptPath,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire invitation service: %w", err)
	}
	return svc, nil
}

// invitationSecret returns the configured signing secret. Development runs
// without one get a random per-process secret, so tokens die on restart.
func invitationSecret(cfg *config.AppConfig, logger *slog.Logger) ([]byte, error) {
	if secret := []byte(cfg.Auth.TokenSecret); len(secret) > 0 {
		if len(secret) < minTokenSecretLen {
			return nil, fmt.Errorf("AUTH_TOKEN_SECRET must be at least %d bytes", minTokenSecretLen)
		}
		return secret, nil
	}
	if !cfg.IsDev {
		return nil, errors.New("AUTH_TOKEN_SECRET is required outside development")
	}
	logger.Warn("AUTH_TOKEN_SECRET not set; using an ephemeral invitation secret")
	secret := make([]byte, minTokenSecretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate invitation secret: %w", err)
	}
	return secret, nil
}

// RouterServices adapts the container to the HTTP router's dependencies.
func (c *ServiceContainer) RouterServices(cfg *config.AppConfig, logger *slog.Logger) httpx.RouterServices {
	rs := httpx.RouterServices{
		Jobs:           c.Jobs,
		Dashboard:      c.Dashboard,
		Export:         c.Export,
		Subcontractors: c.Subcontractors,
		Users:          c.Users,
		Invitations:    c.Invitations,
		CookieDomain:   ResolveCookieDomain(cfg.HTTP),
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		Readiness:      c.Readiness,
		Logger:         logger,
	}
	if c.Auth != nil {
		rs.Auth = c.Auth
	}
	return rs
}

// ResolveCookieDomain prefers the explicit APP_COOKIE_DOMAIN and otherwise
// derives the registrable domain from APP_BASE_URL.
func ResolveCookieDomain(cfg config.HTTPConfig) string {
	if cfg.CookieDomain != "" {
		return cfg.CookieDomain
	}
	return httpx.CookieDomainFor(cfg.BaseURL)
}

// Close releases resources owned by the container.
func (c *ServiceContainer) Close() error {
	if c == nil {
		return nil
	}
	return c.Metrics.Close()
}
