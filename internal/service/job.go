package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/target/dispatch-api/internal/core"
	"github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/domain/dispatch"
	"github.com/target/dispatch-api/internal/domain/lifecycle"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
	"github.com/target/dispatch-api/internal/observability/metrics"
	"github.com/target/dispatch-api/internal/observability/statsd"
)

// maxJobIDAttempts bounds job code regeneration on collision.
const maxJobIDAttempts = 5

// JobNotifier delivers assignment and update messages for jobs.
type JobNotifier interface {
	NotifyAssignment(ctx context.Context, job model.Job, sub model.Subcontractor, platform dispatch.ClientPlatform) DeliveryReport
	NotifyUpdate(ctx context.Context, job model.Job, sub model.Subcontractor, platform dispatch.ClientPlatform) DeliveryReport
	PortalOrigin() string
}

// JobRepositories groups the stores JobService reads and writes.
type JobRepositories struct {
	Jobs           core.JobRepository
	Updates        core.JobUpdateRepository
	Subcontractors core.SubcontractorRepository
}

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repos    JobRepositories
	Notifier JobNotifier  // Optional: nothing is sent when nil
	Logger   *slog.Logger // Optional
	Metrics  statsd.Sink  // Optional
	Clock    core.TimeProvider
	// Random feeds job code generation; defaults to crypto/rand.
	Random io.Reader
}

// JobService orchestrates job creation and mutation: role checks, lifecycle
// rules, audit records and best-effort notification.
type JobService struct {
	jobs     core.JobRepository
	updates  core.JobUpdateRepository
	subs     core.SubcontractorRepository
	notifier JobNotifier
	logger   *slog.Logger
	metrics  statsd.Sink
	clock    core.TimeProvider
	random   io.Reader
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repos.Jobs == nil {
		return nil, fmt.Errorf("JobRepository is required")
	}
	if opts.Repos.Updates == nil {
		return nil, fmt.Errorf("JobUpdateRepository is required")
	}
	if opts.Repos.Subcontractors == nil {
		return nil, fmt.Errorf("SubcontractorRepository is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	random := opts.Random
	if random == nil {
		random = rand.Reader
	}

	return &JobService{
		jobs:     opts.Repos.Jobs,
		updates:  opts.Repos.Updates,
		subs:     opts.Repos.Subcontractors,
		notifier: opts.Notifier,
		logger:   logger.With("component", "job_service"),
		metrics:  opts.Metrics,
		clock:    clock,
		random:   random,
	}, nil
}

// MustNewJobService constructs a JobService and panics on error.
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// JobResult is a job mutation outcome. Link and Warnings come from
// notification delivery and never indicate that the mutation failed.
type JobResult struct {
	Job      *model.Job     `json:"job"`
	Link     *dispatch.Link `json:"link,omitempty"`
	Warnings []Warning      `json:"warnings"`
}

func newJobResult(job *model.Job, report *DeliveryReport) *JobResult {
	res := &JobResult{Job: job, Warnings: []Warning{}}
	if report != nil {
		res.Link = report.Link
		res.Warnings = append(res.Warnings, report.Warnings...)
	}
	return res
}

// Create validates req, allocates a job code and stores the job. If a
// subcontractor is attached they are notified.
func (s *JobService) Create(
	ctx context.Context,
	actor auth.Actor,
	req *model.CreateJobRequest,
	platform dispatch.ClientPlatform,
) (res *JobResult, err error) {
	defer s.observe("create", time.Now(), &err)

	if err := auth.AssertRole(actor, auth.RoleUser); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.lookupSubcontractor(ctx, req.SubcontractorID)
	if err != nil {
		return nil, err
	}

	created, err := s.insertWithFreshID(ctx, *req, actor.Label())
	if err != nil {
		return nil, err
	}

	var report *DeliveryReport
	if sub != nil && s.notifier != nil {
		r := s.notifier.NotifyAssignment(ctx, *created, *sub, platform)
		report = &r
	}
	return newJobResult(created, report), nil
}

func (s *JobService) insertWithFreshID(ctx context.Context, req model.CreateJobRequest, createdBy string) (*model.Job, error) {
	for attempt := 1; attempt <= maxJobIDAttempts; attempt++ {
		id, err := lifecycle.NewJobID(s.random)
		if err != nil {
			return nil, fmt.Errorf("generate job id: %w", err)
		}
		taken, err := s.jobs.Exists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("check job id: %w", err)
		}
		if taken {
			s.logger.DebugContext(ctx, "job id collision", "job_id", id, "attempt", attempt)
			continue
		}

		job, err := lifecycle.NewJob(id, req, createdBy, s.clock.Now().UTC())
		if err != nil {
			return nil, err
		}
		created, err := s.jobs.Create(ctx, job)
		if apperrors.IsConflict(err) {
			// A concurrent insert claimed the same code between Exists and Create.
			s.logger.DebugContext(ctx, "job id claimed concurrently", "job_id", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create job: %w", err)
		}
		return created, nil
	}
	return nil, apperrors.Internalf("could not allocate a unique job id after %d attempts", maxJobIDAttempts)
}

// Get returns a job by code.
func (s *JobService) Get(ctx context.Context, actor auth.Actor, id string) (*model.Job, error) {
	if err := auth.AssertRole(actor, auth.RoleUser); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *JobService) load(ctx context.Context, id string) (*model.Job, error) {
	if !lifecycle.IsJobID(id) {
		return nil, apperrors.NotFoundf("job %q not found", id)
	}
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update applies patch on behalf of actor. Reassignment notifies the new
// subcontractor; a status change notifies the current one.
func (s *JobService) Update(
	ctx context.Context,
	actor auth.Actor,
	id string,
	patch model.JobPatch,
	platform dispatch.ClientPlatform,
) (res *JobResult, err error) {
	defer s.observe("update", time.Now(), &err)

	if err := auth.AssertRole(actor, auth.RoleUser); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.SubcontractorID != nil {
		if _, err := s.lookupSubcontractor(ctx, patch.SubcontractorID); err != nil {
			return nil, err
		}
	}

	before, after, err := s.apply(ctx, actor, id, patch)
	if err != nil {
		return nil, err
	}
	return newJobResult(after, s.notifyChange(ctx, *before, *after, platform)), nil
}

// AttachReceipt records a receipt reference, optionally completing the job.
func (s *JobService) AttachReceipt(
	ctx context.Context,
	actor auth.Actor,
	id, receiptURL string,
	complete bool,
	platform dispatch.ClientPlatform,
) (*JobResult, error) {
	patch := model.JobPatch{ReceiptURL: &receiptURL}
	if complete {
		st := model.JobStatusCompleted
		patch.Status = &st
	}
	return s.Update(ctx, actor, id, patch, platform)
}

func (s *JobService) apply(
	ctx context.Context,
	actor auth.Actor,
	id string,
	patch model.JobPatch,
) (before, after *model.Job, err error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	next, updates, err := lifecycle.ApplyUpdate(*current, patch, actor.Label(), s.clock.Now().UTC())
	if err != nil {
		return nil, nil, err
	}
	if len(updates) == 0 {
		return current, current, nil
	}

	saved, err := s.jobs.Update(ctx, next, updates)
	if err != nil {
		return nil, nil, fmt.Errorf("update job: %w", err)
	}
	return current, saved, nil
}

func (s *JobService) notifyChange(ctx context.Context, before, after model.Job, platform dispatch.ClientPlatform) *DeliveryReport {
	if s.notifier == nil || !after.IsAssigned() {
		return nil
	}

	reassigned := !before.IsAssigned() || *before.SubcontractorID != *after.SubcontractorID
	statusChanged := before.Status != after.Status
	if !reassigned && !statusChanged {
		return nil
	}

	sub, err := s.subs.GetByID(ctx, *after.SubcontractorID)
	if err != nil {
		s.logger.WarnContext(ctx, "cannot load subcontractor for notification",
			"job_id", after.ID, "subcontractor_id", *after.SubcontractorID, "error", err)
		return &DeliveryReport{Warnings: []Warning{warningFrom(
			apperrors.DeliveryFailure(err, "subcontractor could not be loaded for notification"),
		)}}
	}

	var report DeliveryReport
	if reassigned {
		report = s.notifier.NotifyAssignment(ctx, after, *sub, platform)
	} else {
		report = s.notifier.NotifyUpdate(ctx, after, *sub, platform)
	}
	return &report
}

// Delete removes a job and its audit history. Admin only.
func (s *JobService) Delete(ctx context.Context, actor auth.Actor, id string) (err error) {
	defer s.observe("delete", time.Now(), &err)

	if err := auth.AssertRole(actor, auth.RoleAdmin); err != nil {
		return err
	}
	if !lifecycle.IsJobID(id) {
		return apperrors.NotFoundf("job %q not found", id)
	}
	deleted, err := s.jobs.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if !deleted {
		return apperrors.NotFoundf("job %q not found", id)
	}
	s.logger.InfoContext(ctx, "job deleted", "job_id", id, "actor", actor.Label())
	return nil
}

// ListUpdates returns the audit history of a job, oldest first.
func (s *JobService) ListUpdates(ctx context.Context, actor auth.Actor, id string) ([]model.JobUpdate, error) {
	if err := auth.AssertRole(actor, auth.RoleUser); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	updates, err := s.updates.ListByJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list job updates: %w", err)
	}
	return updates, nil
}

// JobLinks are the deep links a dispatcher opens for a job.
type JobLinks struct {
	Portal    string         `json:"portal"`
	Maps      dispatch.Link  `json:"maps"`
	Messaging *dispatch.Link `json:"messaging,omitempty"`
	Warnings  []Warning      `json:"warnings"`
}

// Links builds the portal, maps and messaging links for a job. A subcontractor
// phone that cannot be normalized is reported as a warning.
func (s *JobService) Links(
	ctx context.Context,
	actor auth.Actor,
	id string,
	platform dispatch.ClientPlatform,
) (*JobLinks, error) {
	if err := auth.AssertRole(actor, auth.RoleUser); err != nil {
		return nil, err
	}
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	origin := s.portalOrigin()
	links := &JobLinks{
		Portal:   dispatch.PortalURL(origin, job.ID),
		Maps:     dispatch.MapsLink(platform, job.CustomerAddress),
		Warnings: []Warning{},
	}
	if !job.IsAssigned() {
		return links, nil
	}

	sub, err := s.subs.GetByID(ctx, *job.SubcontractorID)
	if err != nil {
		return nil, fmt.Errorf("get subcontractor: %w", err)
	}
	msg, err := dispatch.MessagingLink(platform, sub.Phone, dispatch.BuildAssignmentMessage(*job, origin))
	if err != nil {
		links.Warnings = append(links.Warnings, warningFrom(err))
		return links, nil
	}
	links.Messaging = &msg
	return links, nil
}

// PortalJob is the view of a job exposed through its public link.
type PortalJob struct {
	ID               string          `json:"id"`
	CustomerName     string          `json:"customer_name"`
	CustomerPhone    string          `json:"customer_phone"`
	CustomerAddress  string          `json:"customer_address"`
	IssueDescription string          `json:"issue_description"`
	Status           model.JobStatus `json:"status"`
	Materials        string          `json:"materials"`
	Notes            string          `json:"notes"`
	ReceiptURL       *string         `json:"receipt_url,omitempty"`
	Maps             dispatch.Link   `json:"maps"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func newPortalJob(job model.Job, platform dispatch.ClientPlatform) *PortalJob {
	return &PortalJob{
		ID:               job.ID,
		CustomerName:     job.CustomerName,
		CustomerPhone:    dispatch.FormatPhone(job.CustomerPhone),
		CustomerAddress:  job.CustomerAddress,
		IssueDescription: job.IssueDescription,
		Status:           job.Status,
		Materials:        job.Materials,
		Notes:            job.Notes,
		ReceiptURL:       job.ReceiptURL,
		Maps:             dispatch.MapsLink(platform, job.CustomerAddress),
		UpdatedAt:        job.UpdatedAt,
	}
}

// PortalGet returns the public view of a job. Prices and assignment are not exposed.
func (s *JobService) PortalGet(ctx context.Context, id string, platform dispatch.ClientPlatform) (*PortalJob, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return newPortalJob(*job, platform), nil
}

// PortalUpdate applies the restricted patch a subcontractor may submit through
// the public link. Changes are audited under the portal actor and send nothing.
func (s *JobService) PortalUpdate(
	ctx context.Context,
	id string,
	patch model.PortalJobPatch,
	platform dispatch.ClientPlatform,
) (out *PortalJob, err error) {
	defer s.observe("portal_update", time.Now(), &err)

	full := patch.JobPatch()
	if err := full.Validate(); err != nil {
		return nil, err
	}
	_, after, err := s.apply(ctx, auth.PortalActor(), id, full)
	if err != nil {
		return nil, err
	}
	return newPortalJob(*after, platform), nil
}

func (s *JobService) lookupSubcontractor(ctx context.Context, id *string) (*model.Subcontractor, error) {
	if id == nil || *id == "" {
		return nil, nil //nolint:nilnil // no subcontractor requested
	}
	sub, err := s.subs.GetByID(ctx, *id)
	if apperrors.IsNotFound(err) {
		return nil, apperrors.ValidationField("subcontractor_id", "subcontractor does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get subcontractor: %w", err)
	}
	return sub, nil
}

func (s *JobService) portalOrigin() string {
	if s.notifier == nil {
		return ""
	}
	return s.notifier.PortalOrigin()
}

func (s *JobService) observe(op string, start time.Time, errp *error) {
	result := metrics.ResultSuccess
	var err error
	if errp != nil && *errp != nil {
		err = *errp
		result = metrics.ResultError
	}
	metrics.EmitJobMutation(s.metrics, metrics.JobMetric{
		Operation: op,
		Result:    result,
		Duration:  time.Since(start),
		Err:       err,
	})
}
