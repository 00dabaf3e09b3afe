package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/domain/model"
)

// InvitationAPI is the invitation service surface the handlers use.
type InvitationAPI interface {
	Create(ctx context.Context, actor auth.Actor, req *model.CreateInvitationRequest) (*model.IssuedInvitation, error)
	List(ctx context.Context, actor auth.Actor) ([]model.AdminInvitation, error)
	Revoke(ctx context.Context, actor auth.Actor, id string) (*model.AdminInvitation, error)
	Validate(ctx context.Context, token string) (*model.AdminInvitation, error)
	Accept(ctx context.Context, req *model.AcceptInvitationRequest) (*model.Profile, error)
}

// InvitationHandlers serves admin invitation management and the public
// signup endpoints.
type InvitationHandlers struct {
	Svc    InvitationAPI
	Logger *slog.Logger
	// Now derives invitation status. Defaults to time.Now.
	Now func() time.Time
}

// invitationView adds the derived status to a stored invitation.
type invitationView struct {
	model.AdminInvitation
	Status model.InvitationStatus `json:"status"`
}

// List handles GET /api/invitations.
func (h *InvitationHandlers) List(w http.ResponseWriter, r *http.Request) {
	invs, err := h.Svc.List(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	out := make([]invitationView, 0, len(invs))
	for _, inv := range invs {
		out = append(out, h.view(inv))
	}
	WriteJSON(w, http.StatusOK, out)
}

// Create handles POST /api/invitations. The token is only ever returned here.
func (h *InvitationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateInvitationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	issued, err := h.Svc.Create(r.Context(), ActorFromContext(r.Context()), &req)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, issued)
}

// Revoke handles POST /api/invitations/{id}/revoke.
func (h *InvitationHandlers) Revoke(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Svc.Revoke(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.view(*inv))
}

// Validate handles GET /api/invitations/validate?token=. It only reveals the
// invited email.
func (h *InvitationHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get(queryToken))
	if token == "" {
		writeValidation(w, queryToken, "token is required")
		return
	}
	inv, err := h.Svc.Validate(r.Context(), token)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"email":      inv.Email,
		"expires_at": inv.ExpiresAt,
	})
}

// Accept handles POST /api/invitations/accept.
func (h *InvitationHandlers) Accept(w http.ResponseWriter, r *http.Request) {
	var req model.AcceptInvitationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	p, err := h.Svc.Accept(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, p)
}

func (h *InvitationHandlers) view(inv model.AdminInvitation) invitationView {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return invitationView{AdminInvitation: inv, Status: inv.Status(now())}
}
