package httpx

import (
	"net/url"
	"strings"

	"github.com/target/dispatch-api/internal/domain/dashboard"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
)

// filterAll is accepted for every select-style filter and means "no filter".
const filterAll = "all"

// ParseDashboardFilter reads dashboard filter query parameters:
// search, status, subcontractor_id (or "unassigned"), region and date_range.
func ParseDashboardFilter(q url.Values) (dashboard.Filter, error) {
	f := dashboard.Filter{
		Search:          strings.TrimSpace(q.Get("search")),
		SubcontractorID: selectValue(q, "subcontractor_id"),
		Region:          selectValue(q, "region"),
	}

	if raw := selectValue(q, "status"); raw != "" {
		st, ok := model.ParseJobStatus(raw)
		if !ok {
			return dashboard.Filter{}, apperrors.ValidationField("status", "unknown job status")
		}
		f.Status = st
	}

	if raw := selectValue(q, "date_range"); raw != "" {
		var dr dashboard.DateRange
		if err := dr.UnmarshalText([]byte(raw)); err != nil {
			return dashboard.Filter{}, apperrors.ValidationField("date_range", "unknown date range")
		}
		f.DateRange = dr
	}

	if strings.EqualFold(f.SubcontractorID, dashboard.Unassigned) {
		f.SubcontractorID = dashboard.Unassigned
	}
	return f, nil
}

func selectValue(q url.Values, key string) string {
	v := strings.TrimSpace(q.Get(key))
	if strings.EqualFold(v, filterAll) {
		return ""
	}
	return v
}
