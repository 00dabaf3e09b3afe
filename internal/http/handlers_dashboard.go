package httpx

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/domain/dashboard"
	"github.com/target/dispatch-api/internal/domain/model"
	"github.com/target/dispatch-api/internal/service"
)

// DashboardAPI is the dashboard service surface the handlers use.
type DashboardAPI interface {
	Jobs(ctx context.Context, actor auth.Actor, f dashboard.Filter) ([]model.Job, error)
	Overview(ctx context.Context, actor auth.Actor, f dashboard.Filter) (*service.DashboardView, error)
}

// ExportAPI renders the filtered dashboard as a spreadsheet.
type ExportAPI interface {
	Filename() string
	WriteXLSX(ctx context.Context, actor auth.Actor, f dashboard.Filter, w io.Writer) error
}

// DashboardHandlers serves the filtered job list, the dashboard overview and
// the XLSX export.
type DashboardHandlers struct {
	Svc    DashboardAPI
	Export ExportAPI
	Logger *slog.Logger
}

func (h *DashboardHandlers) filter(w http.ResponseWriter, r *http.Request) (dashboard.Filter, bool) {
	f, err := ParseDashboardFilter(r.URL.Query())
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return dashboard.Filter{}, false
	}
	return f, true
}

// ListJobs handles GET /api/jobs.
func (h *DashboardHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	jobs, err := h.Svc.Jobs(r.Context(), ActorFromContext(r.Context()), f)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	WriteJSON(w, http.StatusOK, jobs)
}

// Overview handles GET /api/dashboard.
func (h *DashboardHandlers) Overview(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.Overview(r.Context(), ActorFromContext(r.Context()), f)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// ExportXLSX handles GET /api/jobs/export.xlsx. The workbook is rendered in
// memory first so a failure can still be reported as JSON.
func (h *DashboardHandlers) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.Export.WriteXLSX(r.Context(), ActorFromContext(r.Context()), f, &buf); err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeXLSX)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": h.Export.Filename(),
	}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		return
	}
}
