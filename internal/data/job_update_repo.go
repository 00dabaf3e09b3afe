package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/target/dispatch-api/internal/data/pgxutil"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
)

// JobUpdateRepo is the append-only store of job audit records.
type JobUpdateRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewJobUpdateRepo creates a new JobUpdateRepo.
func NewJobUpdateRepo(db *sql.DB) *JobUpdateRepo {
	return &JobUpdateRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

const jobUpdateListQuery = `
	SELECT id, job_id, field_name, old_value, new_value, updated_by, created_at
	FROM job_updates
	WHERE job_id = $1
	ORDER BY created_at ASC, id ASC`

// Append inserts audit records atomically.
func (r *JobUpdateRepo) Append(ctx context.Context, updates []model.JobUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			return appendJobUpdates(ctx, tx, updates, r.timeProvider)
		},
	})
	if err != nil {
		return fmt.Errorf("append job updates: %w", apperrors.MapDBError(err))
	}
	return nil
}

// ListByJob returns a job's audit records oldest first.
func (r *JobUpdateRepo) ListByJob(ctx context.Context, jobID string) ([]model.JobUpdate, error) {
	var out []model.JobUpdate
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryAll[model.JobUpdate](ctx, conn, jobUpdateListQuery, jobID)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("list job updates: %w", err)
	}
	return out, nil
}
