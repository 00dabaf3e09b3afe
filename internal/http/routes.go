package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/target/dispatch-api/internal/domain/auth"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs           JobAPI
	Dashboard      DashboardAPI
	Export         ExportAPI
	Subcontractors SubcontractorAPI
	Users          UserAPI
	Invitations    InvitationAPI
	Auth           AuthServiceInterface
	CookieDomain   string
	CORSOrigins    []string
	// Readiness backs GET /readyz; liveness at /healthz never checks dependencies.
	Readiness map[string]ReadinessCheck
	Logger    *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", liveness)
	mux.HandleFunc("HEAD /healthz", liveness)
	mux.Handle("GET /readyz", readiness(services.Readiness, logger))

	gate := routeGate{sessions: services.Auth}

	if services.Auth != nil {
		registerAuthRoutes(mux, &AuthHandlers{Svc: services.Auth, CookieDomain: services.CookieDomain, Logger: logger})
	}
	if services.Jobs != nil {
		registerJobRoutes(mux, &JobHandlers{Svc: services.Jobs, Logger: logger}, gate)
	}
	if services.Dashboard != nil {
		registerDashboardRoutes(mux, &DashboardHandlers{
			Svc:    services.Dashboard,
			Export: services.Export,
			Logger: logger,
		}, gate)
	}
	if services.Subcontractors != nil {
		subs := &SubcontractorHandlers{Svc: services.Subcontractors, Logger: logger}
		registerCRUD(mux, crudRoutes{base: "/api/subcontractors", list: subs.List, handle: subs}, gate)
	}
	if services.Users != nil {
		registerUserRoutes(mux, &UserHandlers{Svc: services.Users, Logger: logger}, gate)
	}
	if services.Invitations != nil {
		registerInvitationRoutes(mux, &InvitationHandlers{Svc: services.Invitations, Logger: logger}, gate)
	}

	return Chain(mux,
		Recover(logger),
		Logging(logger),
		CORS(services.CORSOrigins),
	)
}

// routeGate wraps handlers in the session checks for a role.
type routeGate struct {
	sessions SessionResolver
}

func (g routeGate) user(h http.HandlerFunc) http.Handler {
	return RequireRole(g.sessions, domainauth.RoleUser)(h)
}

func (g routeGate) admin(h http.HandlerFunc) http.Handler {
	return RequireRole(g.sessions, domainauth.RoleAdmin)(h)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/password", h.Password)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/me", h.Me)
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers, gate routeGate) {
	mux.Handle("POST /api/jobs", gate.user(h.Create))
	mux.Handle("GET /api/jobs/{id}", gate.user(h.Get))
	mux.Handle("PATCH /api/jobs/{id}", gate.user(h.Update))
	mux.Handle("DELETE /api/jobs/{id}", gate.admin(h.Delete))
	mux.Handle("GET /api/jobs/{id}/updates", gate.user(h.Updates))
	mux.Handle("GET /api/jobs/{id}/links", gate.user(h.Links))

	// The job code is the portal capability; no session is involved.
	mux.HandleFunc("GET /api/portal/jobs/{id}", h.PortalGet)
	mux.HandleFunc("PATCH /api/portal/jobs/{id}", h.PortalUpdate)
}

func registerDashboardRoutes(mux *http.ServeMux, h *DashboardHandlers, gate routeGate) {
	mux.Handle("GET /api/jobs", gate.user(h.ListJobs))
	mux.Handle("GET /api/dashboard", gate.user(h.Overview))
	if h.Export != nil {
		// More specific than GET /api/jobs/{id}, so ServeMux prefers it.
		mux.Handle("GET /api/jobs/export.xlsx", gate.user(h.ExportXLSX))
	}
}

// crudHandlers is implemented by resources exposing the standard REST set.
type crudHandlers interface {
	Get(http.ResponseWriter, *http.Request)
	Create(http.ResponseWriter, *http.Request)
	Update(http.ResponseWriter, *http.Request)
	Delete(http.ResponseWriter, *http.Request)
}

type crudRoutes struct {
	base   string
	list   http.HandlerFunc
	handle crudHandlers
}

// registerCRUD mounts reads for users and writes for admins.
func registerCRUD(mux *http.ServeMux, rt crudRoutes, gate routeGate) {
	item := rt.base + "/{id}"
	mux.Handle("GET "+rt.base, gate.user(rt.list))
	mux.Handle("GET "+item, gate.user(rt.handle.Get))
	mux.Handle("POST "+rt.base, gate.admin(rt.handle.Create))
	mux.Handle("PUT "+item, gate.admin(rt.handle.Update))
	mux.Handle("DELETE "+item, gate.admin(rt.handle.Delete))
}

func registerUserRoutes(mux *http.ServeMux, h *UserHandlers, gate routeGate) {
	mux.Handle("GET /api/users", gate.admin(h.List))
	mux.Handle("POST /api/users", gate.admin(h.Create))
	mux.Handle("DELETE /api/users/{id}", gate.admin(h.Delete))
	mux.Handle("POST /api/users/{id}/promote", gate.admin(h.Promote))
	mux.Handle("POST /api/users/{id}/demote", gate.admin(h.Demote))
	mux.Handle("POST /api/users/{id}/reset-password", gate.admin(h.ResetPassword))
}

func registerInvitationRoutes(mux *http.ServeMux, h *InvitationHandlers, gate routeGate) {
	mux.Handle("GET /api/invitations", gate.admin(h.List))
	mux.Handle("POST /api/invitations", gate.admin(h.Create))
	mux.Handle("POST /api/invitations/{id}/revoke", gate.admin(h.Revoke))

	mux.HandleFunc("GET /api/invitations/validate", h.Validate)
	mux.HandleFunc("POST /api/invitations/accept", h.Accept)
}
