package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/dispatch-api/internal/core"
	"github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/domain/dashboard"
	"github.com/target/dispatch-api/internal/domain/model"
)

const defaultDashboardMaxJobs = 5000

// DashboardConfig tunes the dashboard snapshot.
type DashboardConfig struct {
	// Location anchors business-week and day boundaries. Defaults to UTC.
	Location *time.Location
	// MaxJobs caps how many recent jobs one request loads.
	MaxJobs int
}

// DashboardServiceOptions groups dependencies for DashboardService.
type DashboardServiceOptions struct {
	Jobs           core.JobRepository
	Subcontractors core.SubcontractorRepository
	Config         DashboardConfig
	Clock          core.TimeProvider
}

// DashboardService filters and totals jobs for the dispatcher dashboard.
type DashboardService struct {
	jobs  core.JobRepository
	subs  core.SubcontractorRepository
	cfg   DashboardConfig
	clock core.TimeProvider
}

// NewDashboardService constructs a new DashboardService.
func NewDashboardService(opts DashboardServiceOptions) *DashboardService {
	if opts.Jobs == nil {
		panic("JobRepository is required")
	}
	if opts.Subcontractors == nil {
		panic("SubcontractorRepository is required")
	}
	cfg := opts.Config
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = defaultDashboardMaxJobs
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &DashboardService{jobs: opts.Jobs, subs: opts.Subcontractors, cfg: cfg, clock: clock}
}

// DashboardView is the filtered job list plus totals and the lookup data the
// dashboard renders alongside it.
type DashboardView struct {
	Jobs           []model.Job           `json:"jobs"`
	Summary        dashboard.Summary     `json:"summary"`
	Subcontractors []model.Subcontractor `json:"subcontractors"`
	Range          *dashboard.Bounds     `json:"range,omitempty"`
	GeneratedAt    time.Time             `json:"generated_at"`
}

// Now is the dashboard clock in the business time zone.
func (s *DashboardService) Now() time.Time {
	return s.clock.Now().In(s.cfg.Location)
}

// Jobs returns the jobs matching f, newest first.
func (s *DashboardService) Jobs(ctx context.Context, actor auth.Actor, f dashboard.Filter) ([]model.Job, error) {
	if err := auth.AssertRole(actor, auth.RoleUser); err != nil {
		return nil, err
	}
	now := s.Now()
	jobs, err := s.jobs.List(ctx, s.listOptions(f, now))
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return dashboard.Apply(jobs, f, now), nil
}

// Overview loads jobs and subcontractors concurrently, then filters and totals the jobs.
func (s *DashboardService) Overview(ctx context.Context, actor auth.Actor, f dashboard.Filter) (*DashboardView, error) {
	if err := auth.AssertRole(actor, auth.RoleUser); err != nil {
		return nil, err
	}
	now := s.Now()

	var (
		jobs []model.Job
		subs []model.Subcontractor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		jobs, err = s.jobs.List(gctx, s.listOptions(f, now))
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		subs, err = s.subs.List(gctx)
		if err != nil {
			return fmt.Errorf("list subcontractors: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	filtered := dashboard.Apply(jobs, f, now)
	view := &DashboardView{
		Jobs:           filtered,
		Summary:        dashboard.Summarize(filtered),
		Subcontractors: subs,
		GeneratedAt:    now,
	}
	if b, ok := dashboard.RangeBounds(f.DateRange, now); ok {
		view.Range = &b
	}
	return view, nil
}

// listOptions pushes the exact-match parts of f down to the store. Search and
// the date range are always re-applied in memory.
func (s *DashboardService) listOptions(f dashboard.Filter, now time.Time) model.JobsListOptions {
	opts := model.JobsListOptions{
		Status:          f.Status,
		SubcontractorID: f.SubcontractorID,
		Region:          f.Region,
		Limit:           s.cfg.MaxJobs,
	}
	if b, ok := dashboard.RangeBounds(f.DateRange, now); ok {
		start, end := b.Start.UTC(), b.End.UTC()
		opts.CreatedAfter = &start
		opts.CreatedBefore = &end
	}
	return opts
}
