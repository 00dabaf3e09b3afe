package dashboard

import (
	"strings"
	"time"

	"github.com/target/dispatch-api/internal/domain/dispatch"
	"github.com/target/dispatch-api/internal/domain/model"
)

// Unassigned is a SubcontractorID filter value that matches jobs with no subcontractor.
const Unassigned = model.UnassignedFilter

// Filter selects jobs for the dashboard. Empty fields match everything and
// all non-empty fields are ANDed.
type Filter struct {
	Search          string          `json:"search,omitempty"`
	Status          model.JobStatus `json:"status,omitempty"`
	SubcontractorID string          `json:"subcontractor_id,omitempty"`
	Region          string          `json:"region,omitempty"`
	DateRange       DateRange       `json:"date_range,omitempty"`
}

// IsEmpty reports whether f filters nothing.
func (f Filter) IsEmpty() bool {
	return f == Filter{}
}

// Predicate compiles f into a reusable match function. now anchors the date range.
func (f Filter) Predicate(now time.Time) func(model.Job) bool {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	qDigits := dispatch.Digits(q)
	bounds, hasRange := RangeBounds(f.DateRange, now)

	return func(j model.Job) bool {
		if f.Status != "" && j.Status != f.Status {
			return false
		}
		if f.Region != "" && j.Region != f.Region {
			return false
		}
		if !matchSubcontractor(j, f.SubcontractorID) {
			return false
		}
		if hasRange && !bounds.Contains(j.CreatedAt.In(now.Location())) {
			return false
		}
		return q == "" || matchSearch(j, q, qDigits)
	}
}

// Apply returns the jobs matching f, preserving order.
func Apply(jobs []model.Job, f Filter, now time.Time) []model.Job {
	match := f.Predicate(now)
	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if match(j) {
			out = append(out, j)
		}
	}
	return out
}

func matchSubcontractor(j model.Job, want string) bool {
	switch want {
	case "":
		return true
	case Unassigned:
		return !j.IsAssigned()
	default:
		return j.SubcontractorID != nil && *j.SubcontractorID == want
	}
}

func matchSearch(j model.Job, q, qDigits string) bool {
	if strings.Contains(strings.ToLower(j.CustomerName), q) ||
		strings.Contains(strings.ToLower(j.ID), q) ||
		strings.Contains(strings.ToLower(j.CustomerAddress), q) {
		return true
	}
	return qDigits != "" && strings.Contains(dispatch.Digits(j.CustomerPhone), qDigits)
}
