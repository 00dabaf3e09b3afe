package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/dispatch-api/internal/core"
	"github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
)

// SubcontractorServiceOptions groups dependencies for SubcontractorService.
type SubcontractorServiceOptions struct {
	Repo   core.SubcontractorRepository // Required
	Logger *slog.Logger                 // Optional
}

// SubcontractorService manages the subcontractor directory. Reads need the
// user role; every mutation needs admin.
type SubcontractorService struct {
	repo   core.SubcontractorRepository
	logger *slog.Logger
}

// NewSubcontractorService constructs a new SubcontractorService.
func NewSubcontractorService(opts SubcontractorServiceOptions) *SubcontractorService {
	if opts.Repo == nil {
		panic("SubcontractorRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SubcontractorService{repo: opts.Repo, logger: logger.With("component", "subcontractor_service")}
}

// List returns every subcontractor ordered by name.
func (s *SubcontractorService) List(ctx context.Context, actor auth.Actor) ([]model.Subcontractor, error) {
	if err := auth.AssertRole(actor, auth.RoleUser); err != nil {
		return nil, err
	}
	subs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subcontractors: %w", err)
	}
	return subs, nil
}

// Get returns a subcontractor by ID.
func (s *SubcontractorService) Get(ctx context.Context, actor auth.Actor, id string) (*model.Subcontractor, error) {
	if err := auth.AssertRole(actor, auth.RoleUser); err != nil {
		return nil, err
	}
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get subcontractor: %w", err)
	}
	return sub, nil
}

// Create adds a subcontractor.
func (s *SubcontractorService) Create(
	ctx context.Context,
	actor auth.Actor,
	req *model.CreateSubcontractorRequest,
) (*model.Subcontractor, error) {
	if err := auth.AssertRole(actor, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sub, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create subcontractor: %w", err)
	}
	return sub, nil
}

// Update changes the supplied fields of a subcontractor.
func (s *SubcontractorService) Update(
	ctx context.Context,
	actor auth.Actor,
	id string,
	req model.UpdateSubcontractorRequest,
) (*model.Subcontractor, error) {
	if err := auth.AssertRole(actor, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sub, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("update subcontractor: %w", err)
	}
	return sub, nil
}

// Delete removes a subcontractor and unassigns its jobs in the same
// transaction. It returns how many jobs were unassigned.
func (s *SubcontractorService) Delete(ctx context.Context, actor auth.Actor, id string) (int64, error) {
	if err := auth.AssertRole(actor, auth.RoleAdmin); err != nil {
		return 0, err
	}
	deleted, unassigned, err := s.repo.Delete(ctx, id, actor.Label())
	if err != nil {
		return 0, fmt.Errorf("delete subcontractor: %w", err)
	}
	if !deleted {
		return 0, apperrors.NotFoundf("subcontractor %q not found", id)
	}
	s.logger.InfoContext(ctx, "subcontractor deleted",
		"subcontractor_id", id, "unassigned_jobs", unassigned, "actor", actor.Label())
	return unassigned, nil
}
