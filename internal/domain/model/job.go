// Package model defines the core data types shared by the dispatch services.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/target/dispatch-api/internal/errors"
)

const (
	maxCustomerNameLen = 255
	maxAddressLen      = 512
	maxFreeTextLen     = 10000
)

// JobStatus represents where a job sits in its lifecycle.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobStatus string

const (
	// JobStatusPending is the initial state of a newly created job.
	JobStatusPending JobStatus = "pending"
	// JobStatusAssigned indicates a subcontractor has been dispatched.
	JobStatusAssigned JobStatus = "assigned"
	// JobStatusInProgress indicates work has started on site.
	JobStatusInProgress JobStatus = "in_progress"
	// JobStatusCompleted indicates the job is finished and a receipt was attached.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusCancelled indicates the job was abandoned. Reachable from any state.
	JobStatusCancelled JobStatus = "cancelled"
)

// JobStatuses lists every status in lifecycle order.
func JobStatuses() []JobStatus {
	return []JobStatus{
		JobStatusPending,
		JobStatusAssigned,
		JobStatusInProgress,
		JobStatusCompleted,
		JobStatusCancelled,
	}
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusAssigned, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are expected from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// UnmarshalText implements encoding.TextUnmarshaler for JobStatus.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := JobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobStatus: %q", string(text))
	}
	*s = v
	return nil
}

// ParseJobStatus normalizes a status string and reports whether it is supported.
func ParseJobStatus(value string) (JobStatus, bool) {
	s := JobStatus(strings.ToLower(strings.TrimSpace(value)))
	if s.Valid() {
		return s, true
	}
	return "", false
}

// Job is a unit of field work tracked from creation through completion or cancellation.
// Profit is a cached derivation of SalePrice and PartsCost and is never set by callers.
type Job struct {
	ID               string    `json:"id"                         db:"id"`
	CustomerName     string    `json:"customer_name"              db:"customer_name"`
	CustomerPhone    string    `json:"customer_phone"             db:"customer_phone"`
	CustomerAddress  string    `json:"customer_address"           db:"customer_address"`
	IssueDescription string    `json:"issue_description"          db:"issue_description"`
	SubcontractorID  *string   `json:"subcontractor_id,omitempty" db:"subcontractor_id"`
	Status           JobStatus `json:"status"                     db:"status"`
	Materials        string    `json:"materials"                  db:"materials"`
	SalePrice        float64   `json:"sale_price"                 db:"sale_price"`
	PartsCost        float64   `json:"parts_cost"                 db:"parts_cost"`
	Profit           float64   `json:"profit"                     db:"profit"`
	Notes            string    `json:"notes"                      db:"notes"`
	ReceiptURL       *string   `json:"receipt_url,omitempty"      db:"receipt_url"`
	Region           string    `json:"region"                     db:"region"`
	CreatedBy        *string   `json:"created_by,omitempty"       db:"created_by"`
	CreatedAt        time.Time `json:"created_at"                 db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"                 db:"updated_at"`
}

// IsAssigned reports whether a subcontractor is attached to the job.
func (j Job) IsAssigned() bool {
	return j.SubcontractorID != nil && *j.SubcontractorID != ""
}

// CreateJobRequest represents parameters to create a Job.
// The ID, profit and timestamps are assigned by the server.
type CreateJobRequest struct {
	CustomerName     string    `json:"customer_name"`
	CustomerPhone    string    `json:"customer_phone"`
	CustomerAddress  string    `json:"customer_address"`
	IssueDescription string    `json:"issue_description"`
	SubcontractorID  *string   `json:"subcontractor_id,omitempty"`
	Status           JobStatus `json:"status,omitempty"`
	Materials        string    `json:"materials,omitempty"`
	SalePrice        float64   `json:"sale_price"`
	PartsCost        float64   `json:"parts_cost"`
	Notes            string    `json:"notes,omitempty"`
	ReceiptURL       *string   `json:"receipt_url,omitempty"`
	Region           string    `json:"region,omitempty"`
}

// Validate normalizes and validates CreateJobRequest.
func (r *CreateJobRequest) Validate() error {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	r.CustomerAddress = strings.TrimSpace(r.CustomerAddress)
	r.Region = strings.TrimSpace(r.Region)

	if r.CustomerName == "" {
		return apperrors.ValidationField("customer_name", "customer_name is required")
	}
	if utf8.RuneCountInString(r.CustomerName) > maxCustomerNameLen {
		return apperrors.ValidationField("customer_name", "customer_name cannot exceed 255 characters")
	}
	if r.CustomerPhone == "" {
		return apperrors.ValidationField("customer_phone", "customer_phone is required")
	}
	if !PlausiblePhone(r.CustomerPhone) {
		return apperrors.ValidationField("customer_phone", "customer_phone must contain 10 or 11 digits")
	}
	if r.CustomerAddress == "" {
		return apperrors.ValidationField("customer_address", "customer_address is required")
	}
	if utf8.RuneCountInString(r.CustomerAddress) > maxAddressLen {
		return apperrors.ValidationField("customer_address", "customer_address cannot exceed 512 characters")
	}
	if err := validateFreeText("issue_description", r.IssueDescription); err != nil {
		return err
	}
	if err := validateFreeText("notes", r.Notes); err != nil {
		return err
	}
	if err := validateMoney("sale_price", r.SalePrice); err != nil {
		return err
	}
	if err := validateMoney("parts_cost", r.PartsCost); err != nil {
		return err
	}
	if r.SubcontractorID != nil && strings.TrimSpace(*r.SubcontractorID) == "" {
		r.SubcontractorID = nil
	}
	if r.Status == "" {
		r.Status = JobStatusPending
	}
	if !r.Status.Valid() {
		return apperrors.ValidationField("status", "invalid status")
	}
	return nil
}

// JobPatch is a partial update to a Job. Nil fields are left unchanged.
// SubcontractorID and ReceiptURL treat a pointer to "" as "clear the value".
type JobPatch struct {
	CustomerName     *string    `json:"customer_name,omitempty"`
	CustomerPhone    *string    `json:"customer_phone,omitempty"`
	CustomerAddress  *string    `json:"customer_address,omitempty"`
	IssueDescription *string    `json:"issue_description,omitempty"`
	SubcontractorID  *string    `json:"subcontractor_id,omitempty"`
	Status           *JobStatus `json:"status,omitempty"`
	Materials        *string    `json:"materials,omitempty"`
	SalePrice        *float64   `json:"sale_price,omitempty"`
	PartsCost        *float64   `json:"parts_cost,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	ReceiptURL       *string    `json:"receipt_url,omitempty"`
	Region           *string    `json:"region,omitempty"`
}

// HasUpdates reports whether any field is set in JobPatch.
func (p *JobPatch) HasUpdates() bool {
	return p.CustomerName != nil || p.CustomerPhone != nil || p.CustomerAddress != nil ||
		p.IssueDescription != nil || p.SubcontractorID != nil || p.Status != nil ||
		p.Materials != nil || p.SalePrice != nil || p.PartsCost != nil ||
		p.Notes != nil || p.ReceiptURL != nil || p.Region != nil
}

// Validate validates field-level constraints of the patch. Cross-field rules
// such as the receipt requirement for completion are enforced when the patch
// is applied to a job.
func (p *JobPatch) Validate() error {
	if !p.HasUpdates() {
		return apperrors.Validation("at least one field must be updated")
	}
	if p.CustomerName != nil {
		n := strings.TrimSpace(*p.CustomerName)
		if n == "" {
			return apperrors.ValidationField("customer_name", "customer_name cannot be empty")
		}
		if utf8.RuneCountInString(n) > maxCustomerNameLen {
			return apperrors.ValidationField("customer_name", "customer_name cannot exceed 255 characters")
		}
		*p.CustomerName = n
	}
	if p.CustomerPhone != nil {
		ph := strings.TrimSpace(*p.CustomerPhone)
		if !PlausiblePhone(ph) {
			return apperrors.ValidationField("customer_phone", "customer_phone must contain 10 or 11 digits")
		}
		*p.CustomerPhone = ph
	}
	if p.CustomerAddress != nil {
		a := strings.TrimSpace(*p.CustomerAddress)
		if a == "" {
			return apperrors.ValidationField("customer_address", "customer_address cannot be empty")
		}
		if utf8.RuneCountInString(a) > maxAddressLen {
			return apperrors.ValidationField("customer_address", "customer_address cannot exceed 512 characters")
		}
		*p.CustomerAddress = a
	}
	if p.IssueDescription != nil {
		if err := validateFreeText("issue_description", *p.IssueDescription); err != nil {
			return err
		}
	}
	if p.Notes != nil {
		if err := validateFreeText("notes", *p.Notes); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return apperrors.ValidationField("status", "invalid status")
	}
	if p.SalePrice != nil {
		if err := validateMoney("sale_price", *p.SalePrice); err != nil {
			return err
		}
	}
	if p.PartsCost != nil {
		if err := validateMoney("parts_cost", *p.PartsCost); err != nil {
			return err
		}
	}
	if p.Region != nil {
		*p.Region = strings.TrimSpace(*p.Region)
	}
	return nil
}

// PortalJobPatch is the restricted patch a subcontractor may submit through the
// public job link.
type PortalJobPatch struct {
	Status     *JobStatus `json:"status,omitempty"`
	ReceiptURL *string    `json:"receipt_url,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	Materials  *string    `json:"materials,omitempty"`
}

// JobPatch widens the portal patch into a full JobPatch.
func (p PortalJobPatch) JobPatch() JobPatch {
	return JobPatch{
		Status:     p.Status,
		ReceiptURL: p.ReceiptURL,
		Notes:      p.Notes,
		Materials:  p.Materials,
	}
}

// UnassignedFilter is a subcontractor filter value matching jobs with no subcontractor.
const UnassignedFilter = "unassigned"

// JobsListOptions controls server-side filtering and paging for listing jobs.
// Empty string filters are ignored.
type JobsListOptions struct {
	Status          JobStatus
	SubcontractorID string
	Region          string
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	Limit           int
	Offset          int
}

// PlausiblePhone reports whether raw carries 10 or 11 digits once formatting is stripped.
func PlausiblePhone(raw string) bool {
	n := 0
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n == 10 || n == 11
}

func validateFreeText(field, v string) error {
	if utf8.RuneCountInString(v) > maxFreeTextLen {
		return apperrors.ValidationField(field, field+" is too long")
	}
	return nil
}

func validateMoney(field string, v float64) error {
	if v < 0 {
		return apperrors.ValidationField(field, field+" cannot be negative")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v > 1e10 {
		return apperrors.ValidationField(field, field+" is not a valid amount")
	}
	return nil
}
