// Package lifecycle holds the pure rules governing jobs: profit derivation,
// completion gating, status transitions, audited patching and ID generation.
// Nothing here performs I/O.
package lifecycle

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
)

// ComputeProfit returns max(0, salePrice-partsCost) rounded to cents.
// NaN and infinite inputs count as zero.
func ComputeProfit(salePrice, partsCost float64) float64 {
	p := roundCents(finiteOrZero(salePrice) - finiteOrZero(partsCost))
	if p < 0 {
		return 0
	}
	return p
}

// ParseMoney converts user-entered money text into a number. Currency
// symbols, thousands separators and surrounding space are ignored; anything
// unparseable is zero.
func ParseMoney(raw string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ', '\t':
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return roundCents(finiteOrZero(v))
}

// CanComplete reports whether the job carries a non-blank receipt reference.
func CanComplete(job model.Job) bool {
	return job.ReceiptURL != nil && strings.TrimSpace(*job.ReceiptURL) != ""
}

// ValidateTransition checks that job may move to next. Every state may move to
// cancelled; completed additionally requires a receipt. Assignment is an
// independent axis and is not consulted.
func ValidateTransition(job model.Job, next model.JobStatus) error {
	if !next.Valid() {
		return apperrors.ValidationField("status", "invalid status")
	}
	if next == model.JobStatusCompleted && !CanComplete(job) {
		return apperrors.ValidationField("status", "a receipt is required before a job can be completed")
	}
	return nil
}

// NewJob builds a job from a validated create request.
func NewJob(id string, req model.CreateJobRequest, createdBy string, now time.Time) (model.Job, error) {
	job := model.Job{
		ID:               id,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerAddress:  req.CustomerAddress,
		IssueDescription: req.IssueDescription,
		SubcontractorID:  req.SubcontractorID,
		Status:           req.Status,
		Materials:        req.Materials,
		SalePrice:        roundCents(req.SalePrice),
		PartsCost:        roundCents(req.PartsCost),
		Notes:            req.Notes,
		ReceiptURL:       normalizeOptional(req.ReceiptURL),
		Region:           req.Region,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if job.Status == "" {
		job.Status = model.JobStatusPending
	}
	if createdBy != "" {
		job.CreatedBy = &createdBy
	}
	job.Profit = ComputeProfit(job.SalePrice, job.PartsCost)
	if err := ValidateTransition(job, job.Status); err != nil {
		return model.Job{}, err
	}
	return job, nil
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// normalizeOptional maps blank strings to nil so "cleared" has one representation.
func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
