package lifecycle

import (
	"strconv"
	"time"

	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
)

// ApplyUpdate applies patch to job on behalf of actor and returns the new job
// together with one audit record per field whose value changed. Profit is
// recomputed from the resulting prices and audited when it moves. UpdatedAt is
// refreshed even when nothing changed. On error the input job is returned
// unchanged and no records are produced.
func ApplyUpdate(job model.Job, patch model.JobPatch, actor string, now time.Time) (model.Job, []model.JobUpdate, error) {
	next := job
	d := differ{jobID: job.ID, actor: actor, at: now}

	d.text("customer_name", &next.CustomerName, patch.CustomerName)
	d.text("customer_phone", &next.CustomerPhone, patch.CustomerPhone)
	d.text("customer_address", &next.CustomerAddress, patch.CustomerAddress)
	d.text("issue_description", &next.IssueDescription, patch.IssueDescription)
	d.optional("subcontractor_id", &next.SubcontractorID, patch.SubcontractorID)
	d.text("materials", &next.Materials, patch.Materials)
	d.money("sale_price", &next.SalePrice, patch.SalePrice)
	d.money("parts_cost", &next.PartsCost, patch.PartsCost)
	d.text("notes", &next.Notes, patch.Notes)
	d.optional("receipt_url", &next.ReceiptURL, patch.ReceiptURL)
	d.text("region", &next.Region, patch.Region)

	profit := ComputeProfit(next.SalePrice, next.PartsCost)
	d.money("profit", &next.Profit, &profit)

	if patch.Status != nil {
		if err := ValidateTransition(next, *patch.Status); err != nil {
			return job, nil, err
		}
		if *patch.Status != next.Status {
			d.record("status", ptr(string(next.Status)), ptr(string(*patch.Status)))
			next.Status = *patch.Status
		}
	} else if next.Status == model.JobStatusCompleted && !CanComplete(next) {
		return job, nil, apperrors.ValidationField("receipt_url", "the receipt of a completed job cannot be removed")
	}

	next.UpdatedAt = now
	return next, d.updates, nil
}

type differ struct {
	jobID   string
	actor   string
	at      time.Time
	updates []model.JobUpdate
}

func (d *differ) record(field string, oldValue, newValue *string) {
	d.updates = append(d.updates, model.JobUpdate{
		JobID:     d.jobID,
		FieldName: field,
		OldValue:  oldValue,
		NewValue:  newValue,
		UpdatedBy: d.actor,
		CreatedAt: d.at,
	})
}

func (d *differ) text(field string, cur *string, v *string) {
	if v == nil || *cur == *v {
		return
	}
	d.record(field, ptr(*cur), ptr(*v))
	*cur = *v
}

func (d *differ) optional(field string, cur **string, v *string) {
	if v == nil {
		return
	}
	nv := normalizeOptional(v)
	if equalOptional(*cur, nv) {
		return
	}
	d.record(field, *cur, nv)
	*cur = nv
}

func (d *differ) money(field string, cur *float64, v *float64) {
	if v == nil {
		return
	}
	nv := roundCents(finiteOrZero(*v))
	if *cur == nv {
		return
	}
	d.record(field, ptr(formatMoney(*cur)), ptr(formatMoney(nv)))
	*cur = nv
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func ptr(s string) *string { return &s }
