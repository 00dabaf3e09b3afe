package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/domain/model"
)

// UserAPI is the user management surface the handlers use.
type UserAPI interface {
	List(ctx context.Context, actor auth.Actor) ([]model.Profile, error)
	Create(ctx context.Context, actor auth.Actor, req *model.CreateProfileRequest) (*model.Profile, error)
	Delete(ctx context.Context, actor auth.Actor, id string) error
	Promote(ctx context.Context, actor auth.Actor, id string) (*model.Profile, error)
	Demote(ctx context.Context, actor auth.Actor, id string) (*model.Profile, error)
	ResetPassword(ctx context.Context, actor auth.Actor, id, password string) error
}

// UserHandlers serves the admin user management endpoints.
type UserHandlers struct {
	Svc    UserAPI
	Logger *slog.Logger
}

// List handles GET /api/users.
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Svc.List(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	if users == nil {
		users = []model.Profile{}
	}
	WriteJSON(w, http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UserHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateProfileRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	p, err := h.Svc.Create(r.Context(), ActorFromContext(r.Context()), &req)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, p)
}

// Delete handles DELETE /api/users/{id}.
func (h *UserHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), ActorFromContext(r.Context()), r.PathValue("id")); err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Promote handles POST /api/users/{id}/promote.
func (h *UserHandlers) Promote(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.Svc.Promote)
}

// Demote handles POST /api/users/{id}/demote.
func (h *UserHandlers) Demote(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.Svc.Demote)
}

type roleChange func(ctx context.Context, actor auth.Actor, id string) (*model.Profile, error)

func (h *UserHandlers) changeRole(w http.ResponseWriter, r *http.Request, fn roleChange) {
	p, err := fn(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// ResetPassword handles POST /api/users/{id}/reset-password.
func (h *UserHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := h.Svc.ResetPassword(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"), req.Password); err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
