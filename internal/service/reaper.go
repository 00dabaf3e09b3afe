package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/dispatch-api/internal/core"
	"github.com/target/dispatch-api/internal/observability/metrics"
	"github.com/target/dispatch-api/internal/observability/statsd"
)

// ReaperConfig controls invitation cleanup.
type ReaperConfig struct {
	Interval time.Duration
	// Retention keeps expired, used or revoked invitations for auditing before deletion.
	Retention time.Duration
	BatchSize int
}

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.InvitationRepository // Required
	Config  ReaperConfig
	Logger  *slog.Logger // Optional
	Metrics statsd.Sink  // Optional
	Clock   core.TimeProvider
}

// ReaperService periodically deletes invitations that stopped being usable
// longer ago than the retention window.
type ReaperService struct {
	repo    core.InvitationRepository
	config  ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
	clock   core.TimeProvider
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("InvitationRepository is required")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("reaper interval must be positive")
	}
	if opts.Config.BatchSize <= 0 {
		opts.Config.BatchSize = 500
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"retention", opts.Config.Retention,
			"batch_size", opts.Config.BatchSize,
		)
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}

	return &ReaperService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
		clock:   clock,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	// Jitter spreads multiple instances started together.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if _, err := s.Sweep(ctx); err != nil {
		s.logSweepError(ctx, err, "initial sweep")
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logSweepError(ctx, err, "sweep")
			}
		}
	}
}

// waitWithJitter sleeps for a random delay up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Sweep deletes invitations whose expiry is older than the retention window,
// in batches until none remain. It returns the number deleted.
func (s *ReaperService) Sweep(ctx context.Context) (int64, error) {
	start := time.Now()
	cutoff := s.clock.Now().Add(-s.config.Retention)

	var total int64
	var err error
	for {
		var n int64
		n, err = s.repo.DeleteExpiredBefore(ctx, cutoff, s.config.BatchSize)
		total += n
		if err != nil || n < int64(s.config.BatchSize) {
			break
		}
		if err = ctx.Err(); err != nil {
			break
		}
	}

	s.emitSweepMetrics(total, time.Since(start), err)
	if err != nil {
		return total, fmt.Errorf("delete expired invitations: %w", err)
	}
	if total > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "deleted expired invitations", "count", total, "cutoff", cutoff)
	}
	return total, nil
}

func (s *ReaperService) emitSweepMetrics(count int64, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	result := metrics.ResultSuccess
	switch {
	case err != nil && !isContextCancellation(err):
		result = metrics.ResultError
	case count == 0:
		result = metrics.ResultNoop
	}
	tags := map[string]string{"task": "invitations", "result": result}
	s.metrics.Count("reaper.deleted", count, tags)
	s.metrics.Timing("reaper.duration", elapsed, metrics.CloneTags(tags))
}

func (s *ReaperService) logSweepError(ctx context.Context, err error, label string) {
	if s.logger == nil {
		return
	}
	if isContextCancellation(err) {
		s.logger.DebugContext(ctx, "reaper "+label+" interrupted", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, "reaper "+label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
