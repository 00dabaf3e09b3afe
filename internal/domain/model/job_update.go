package model

import "time"

// JobUpdate is an append-only audit entry recording one changed field of a job.
type JobUpdate struct {
	ID        string    `json:"id"                  db:"id"`
	JobID     string    `json:"job_id"              db:"job_id"`
	FieldName string    `json:"field_name"          db:"field_name"`
	OldValue  *string   `json:"old_value,omitempty" db:"old_value"`
	NewValue  *string   `json:"new_value,omitempty" db:"new_value"`
	UpdatedBy string    `json:"updated_by"          db:"updated_by"`
	CreatedAt time.Time `json:"created_at"          db:"created_at"`
}
