package httpx

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/dispatch-api/internal/domain/dashboard"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
	"github.com/target/dispatch-api/internal/service"
)

func TestDashboardRoutes_ListJobsParsesFilter(t *testing.T) {
	dash := &stubDashboard{jobs: []model.Job{sampleJob()}}
	srv := newTestServer(t, RouterServices{Dashboard: dash, Export: dash})

	rec := srv.do(http.MethodGet,
		"/api/jobs?search=elm&status=assigned&subcontractor_id=all&region=north&date_range=this_week", "", userSessionID)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, dashboard.Filter{
		Search:    "elm",
		Status:    model.JobStatusAssigned,
		Region:    "north",
		DateRange: dashboard.RangeThisWeek,
	}, dash.lastFilter)

	var jobs []model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "Job-7K2M9Q", jobs[0].ID)
}

func TestDashboardRoutes_EmptyListIsArray(t *testing.T) {
	dash := &stubDashboard{}
	srv := newTestServer(t, RouterServices{Dashboard: dash})
	rec := srv.do(http.MethodGet, "/api/jobs", "", userSessionID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestDashboardRoutes_InvalidFilter(t *testing.T) {
	srv := newTestServer(t, RouterServices{Dashboard: &stubDashboard{}})
	rec := srv.do(http.MethodGet, "/api/dashboard?date_range=fortnight", "", userSessionID)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "date_range", decodeError(t, rec).Field)
}

func TestDashboardRoutes_Overview(t *testing.T) {
	dash := &stubDashboard{jobs: []model.Job{sampleJob()}}
	srv := newTestServer(t, RouterServices{Dashboard: dash})
	rec := srv.do(http.MethodGet, "/api/dashboard?subcontractor_id=Unassigned", "", userSessionID)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dashboard.Unassigned, dash.lastFilter.SubcontractorID)

	var view service.DashboardView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 1, view.Summary.Total)
	assert.InDelta(t, 330.0, view.Summary.TotalProfit, 0.001)
}

func TestDashboardRoutes_Export(t *testing.T) {
	dash := &stubDashboard{}
	srv := newTestServer(t, RouterServices{Dashboard: dash, Export: dash})

	rec := srv.do(http.MethodGet, "/api/jobs/export.xlsx?status=completed", "", userSessionID)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=jobs-20260309.xlsx`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK-fake-workbook", rec.Body.String())
	assert.Equal(t, model.JobStatusCompleted, dash.lastFilter.Status)
}

func TestDashboardRoutes_ExportFailureIsJSON(t *testing.T) {
	dash := &stubDashboard{exportErr: apperrors.Forbidden("user role required")}
	srv := newTestServer(t, RouterServices{Dashboard: dash, Export: dash})

	rec := srv.do(http.MethodGet, "/api/jobs/export.xlsx", "", userSessionID)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestParseDashboardFilter(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		f, err := ParseDashboardFilter(nil)
		require.NoError(t, err)
		assert.True(t, f.IsEmpty())
	})

	t.Run("all means no filter", func(t *testing.T) {
		f, err := ParseDashboardFilter(map[string][]string{
			"status": {"ALL"}, "region": {"all"}, "date_range": {"all"},
		})
		require.NoError(t, err)
		assert.True(t, f.IsEmpty())
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := ParseDashboardFilter(map[string][]string{"status": {"lost"}})
		require.Error(t, err)
		assert.Equal(t, "status", apperrors.GetField(err))
	})
}
