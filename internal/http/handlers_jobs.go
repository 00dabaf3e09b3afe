// Package httpx provides the JSON HTTP API for the dispatch service.
package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/domain/dispatch"
	"github.com/target/dispatch-api/internal/domain/model"
	"github.com/target/dispatch-api/internal/service"
)

// JobAPI is the job service surface the handlers use.
type JobAPI interface {
	Create(
		ctx context.Context,
		actor auth.Actor,
		req *model.CreateJobRequest,
		platform dispatch.ClientPlatform,
	) (*service.JobResult, error)
	Get(ctx context.Context, actor auth.Actor, id string) (*model.Job, error)
	Update(
		ctx context.Context,
		actor auth.Actor,
		id string,
		patch model.JobPatch,
		platform dispatch.ClientPlatform,
	) (*service.JobResult, error)
	Delete(ctx context.Context, actor auth.Actor, id string) error
	ListUpdates(ctx context.Context, actor auth.Actor, id string) ([]model.JobUpdate, error)
	Links(ctx context.Context, actor auth.Actor, id string, platform dispatch.ClientPlatform) (*service.JobLinks, error)
	PortalGet(ctx context.Context, id string, platform dispatch.ClientPlatform) (*service.PortalJob, error)
	PortalUpdate(
		ctx context.Context,
		id string,
		patch model.PortalJobPatch,
		platform dispatch.ClientPlatform,
	) (*service.PortalJob, error)
}

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Svc    JobAPI
	Logger *slog.Logger
}

// Create handles POST /api/jobs.
func (h *JobHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.Create(r.Context(), ActorFromContext(r.Context()), &req, ResolvePlatform(r))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, res)
}

// Get handles GET /api/jobs/{id}.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.Get(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Update handles PATCH /api/jobs/{id}. Notification outcomes come back in
// the body's warnings; they never fail the request.
func (h *JobHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.JobPatch
	if !DecodeJSON(w, r, &patch) {
		return
	}

	res, err := h.Svc.Update(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"), patch, ResolvePlatform(r))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// Delete handles DELETE /api/jobs/{id}.
func (h *JobHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), ActorFromContext(r.Context()), r.PathValue("id")); err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Updates handles GET /api/jobs/{id}/updates.
func (h *JobHandlers) Updates(w http.ResponseWriter, r *http.Request) {
	updates, err := h.Svc.ListUpdates(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	if updates == nil {
		updates = []model.JobUpdate{}
	}
	WriteJSON(w, http.StatusOK, updates)
}

// Links handles GET /api/jobs/{id}/links?platform=.
func (h *JobHandlers) Links(w http.ResponseWriter, r *http.Request) {
	links, err := h.Svc.Links(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"), ResolvePlatform(r))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, links)
}

// PortalGet handles GET /api/portal/jobs/{id}. No session is required; the
// job code is the capability.
func (h *JobHandlers) PortalGet(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.PortalGet(r.Context(), r.PathValue("id"), ResolvePlatform(r))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// PortalUpdate handles PATCH /api/portal/jobs/{id}. Only status, receipt,
// notes and materials are accepted; any other field is rejected.
func (h *JobHandlers) PortalUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.PortalJobPatch
	if !DecodeJSON(w, r, &patch) {
		return
	}
	job, err := h.Svc.PortalUpdate(r.Context(), r.PathValue("id"), patch, ResolvePlatform(r))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}
