package dashboard

import (
	"math"

	"github.com/target/dispatch-api/internal/domain/model"
)

// Summary totals a set of jobs for the dashboard header.
type Summary struct {
	Total       int                     `json:"total"`
	ByStatus    map[model.JobStatus]int `json:"by_status"`
	Unassigned  int                     `json:"unassigned"`
	TotalSales  float64                 `json:"total_sales"`
	TotalParts  float64                 `json:"total_parts"`
	TotalProfit float64                 `json:"total_profit"`
}

// Summarize totals jobs. Cancelled jobs are counted but excluded from money totals.
func Summarize(jobs []model.Job) Summary {
	s := Summary{ByStatus: make(map[model.JobStatus]int, len(model.JobStatuses()))}
	for _, st := range model.JobStatuses() {
		s.ByStatus[st] = 0
	}
	for _, j := range jobs {
		s.Total++
		s.ByStatus[j.Status]++
		if !j.IsAssigned() {
			s.Unassigned++
		}
		if j.Status == model.JobStatusCancelled {
			continue
		}
		s.TotalSales += j.SalePrice
		s.TotalParts += j.PartsCost
		s.TotalProfit += j.Profit
	}
	s.TotalSales = cents(s.TotalSales)
	s.TotalParts = cents(s.TotalParts)
	s.TotalProfit = cents(s.TotalProfit)
	return s
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}
