package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/target/dispatch-api/config"
)

// RunConfig contains everything needed to run the enabled service modes.
type RunConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// RunServicesWithShutdown runs every enabled mode until SIGINT/SIGTERM or the
// first failure, then stops the rest.
func RunServicesWithShutdown(ctx context.Context, cfg *RunConfig) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunServices(ctx, cfg)
}

// RunServices runs every enabled mode until ctx is cancelled or one fails.
func RunServices(ctx context.Context, cfg *RunConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("run config with services is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if enabled[config.ServiceModeHTTP] {
		server := NewHTTPServer(cfg.Config, cfg.Services, logger)
		g.Go(func() error { return ServeHTTP(gctx, server, logger) })
	}
	if enabled[config.ServiceModeReaper] {
		g.Go(func() error {
			err := RunReaper(gctx, ReaperConfig{
				DB:      cfg.DB,
				Logger:  logger,
				Config:  cfg.Config.Reaper,
				Metrics: cfg.Services.Metrics,
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	err = g.Wait()
	logger.Info("services stopped")
	return err
}
