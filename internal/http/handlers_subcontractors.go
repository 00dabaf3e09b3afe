package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/domain/model"
)

// SubcontractorAPI is the subcontractor service surface the handlers use.
type SubcontractorAPI interface {
	List(ctx context.Context, actor auth.Actor) ([]model.Subcontractor, error)
	Get(ctx context.Context, actor auth.Actor, id string) (*model.Subcontractor, error)
	Create(ctx context.Context, actor auth.Actor, req *model.CreateSubcontractorRequest) (*model.Subcontractor, error)
	Update(ctx context.Context, actor auth.Actor, id string, req model.UpdateSubcontractorRequest) (*model.Subcontractor, error)
	Delete(ctx context.Context, actor auth.Actor, id string) (int64, error)
}

// SubcontractorHandlers provides CRUD handlers for subcontractors.
type SubcontractorHandlers struct {
	Svc    SubcontractorAPI
	Logger *slog.Logger
}

// List handles GET /api/subcontractors.
func (h *SubcontractorHandlers) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Svc.List(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	if subs == nil {
		subs = []model.Subcontractor{}
	}
	WriteJSON(w, http.StatusOK, subs)
}

// Get handles GET /api/subcontractors/{id}.
func (h *SubcontractorHandlers) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.Svc.Get(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, sub)
}

// Create handles POST /api/subcontractors.
func (h *SubcontractorHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSubcontractorRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	sub, err := h.Svc.Create(r.Context(), ActorFromContext(r.Context()), &req)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, sub)
}

// Update handles PUT /api/subcontractors/{id}.
func (h *SubcontractorHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateSubcontractorRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	sub, err := h.Svc.Update(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, sub)
}

// Delete handles DELETE /api/subcontractors/{id}. The response reports how
// many jobs lost their assignment.
func (h *SubcontractorHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	unassigned, err := h.Svc.Delete(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int64{"unassigned_jobs": unassigned})
}
