// Package notify defines outbound job notifications and the sinks that deliver them.
package notify

import (
	"context"
	"time"
)

// Kind identifies what triggered a notification.
type Kind string

const (
	KindAssignment Kind = "job_assigned"
	KindUpdate     Kind = "job_updated"
)

// Message is the canonical notification sent to a subcontractor about a job.
type Message struct {
	Kind       Kind      `json:"kind"`
	JobID      string    `json:"job_id"`
	JobStatus  string    `json:"job_status"`
	Recipient  string    `json:"recipient"`
	Phone      string    `json:"phone"`
	Text       string    `json:"text"`
	Link       string    `json:"link"`
	PortalURL  string    `json:"portal_url"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink describes a destination capable of delivering job notifications.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, msg Message) error

// Send implements the Sink interface.
func (f SinkFunc) Send(ctx context.Context, msg Message) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}
