// Package reaper provides adapters for running the invitation reaper.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/dispatch-api/config"
	"github.com/target/dispatch-api/internal/core"
	"github.com/target/dispatch-api/internal/data"
	"github.com/target/dispatch-api/internal/observability/statsd"
	"github.com/target/dispatch-api/internal/service"
)

// Runner wires the reaper service against Postgres and runs its loop.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.ReaperConfig
	Logger *slog.Logger

	// Repo overrides the Postgres invitation repository.
	Repo    core.InvitationRepository
	Metrics statsd.Sink
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.Repo == nil {
		return nil, errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	repo := opts.Repo
	if repo == nil {
		repo = data.NewInvitationRepo(opts.DB)
	}

	svc, err := service.NewReaperService(service.ReaperServiceOptions{
		Repo: repo,
		Config: service.ReaperConfig{
			Interval:  opts.Config.Interval,
			Retention: opts.Config.InvitationRetention,
			BatchSize: opts.Config.BatchSize,
		},
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{reaper: svc, logger: opts.Logger}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}
