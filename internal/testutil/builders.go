package testutil

import (
	"time"

	"github.com/target/dispatch-api/internal/domain/model"
)

// JobBuilder builds model.Job values with sensible defaults.
type JobBuilder struct {
	job model.Job
}

// NewJob starts a pending job created at TestTime.
func NewJob(id string) *JobBuilder {
	return &JobBuilder{job: model.Job{
		ID:               id,
		CustomerName:     "Jane Doe",
		CustomerPhone:    "5551234567",
		CustomerAddress:  "1 Elm St",
		IssueDescription: "Leaking faucet",
		Status:           model.JobStatusPending,
		Region:           "North",
		CreatedAt:        TestTime(),
		UpdatedAt:        TestTime(),
	}}
}

// WithStatus sets the status.
func (b *JobBuilder) WithStatus(s model.JobStatus) *JobBuilder {
	b.job.Status = s
	return b
}

// WithSubcontractor assigns a subcontractor.
func (b *JobBuilder) WithSubcontractor(id string) *JobBuilder {
	b.job.SubcontractorID = &id
	return b
}

// WithMoney sets sale price, parts cost and the matching profit.
func (b *JobBuilder) WithMoney(sale, parts float64) *JobBuilder {
	b.job.SalePrice = sale
	b.job.PartsCost = parts
	b.job.Profit = max(0, sale-parts)
	return b
}

// WithReceipt sets the receipt URL.
func (b *JobBuilder) WithReceipt(url string) *JobBuilder {
	b.job.ReceiptURL = &url
	return b
}

// WithCustomer sets customer name, phone and address.
func (b *JobBuilder) WithCustomer(name, phone, address string) *JobBuilder {
	b.job.CustomerName = name
	b.job.CustomerPhone = phone
	b.job.CustomerAddress = address
	return b
}

// WithRegion sets the region.
func (b *JobBuilder) WithRegion(region string) *JobBuilder {
	b.job.Region = region
	return b
}

// CreatedAt sets both timestamps.
func (b *JobBuilder) CreatedAt(t time.Time) *JobBuilder {
	b.job.CreatedAt = t
	b.job.UpdatedAt = t
	return b
}

// Build returns the job.
func (b *JobBuilder) Build() model.Job {
	return b.job
}
