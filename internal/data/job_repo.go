package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/target/dispatch-api/internal/data/database"
	"github.com/target/dispatch-api/internal/data/pgxutil"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
)

// JobRepo provides database operations for jobs and their audit trail.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewJobRepo creates a new JobRepo with real time provider.
func NewJobRepo(db *sql.DB) *JobRepo {
	return &JobRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewJobRepoWithTimeProvider creates a new JobRepo with a custom time provider (useful for tests).
func NewJobRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *JobRepo {
	return &JobRepo{DB: db, timeProvider: tp}
}

const (
	jobSelectColumns = `id, customer_name, customer_phone, customer_address, issue_description,
		subcontractor_id, status, materials, sale_price, parts_cost, profit, notes, receipt_url,
		region, created_by, created_at, updated_at`

	jobGetByIDQuery = `SELECT ` + jobSelectColumns + ` FROM jobs WHERE id = $1`

	jobExistsQuery = `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`

	jobInsertQuery = `
		INSERT INTO jobs (
			id, customer_name, customer_phone, customer_address, issue_description,
			subcontractor_id, status, materials, sale_price, parts_cost, profit, notes,
			receipt_url, region, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
		RETURNING ` + jobSelectColumns

	jobUpdateQuery = `
		UPDATE jobs SET
			customer_name = $2, customer_phone = $3, customer_address = $4, issue_description = $5,
			subcontractor_id = $6, status = $7, materials = $8, sale_price = $9, parts_cost = $10,
			profit = $11, notes = $12, receipt_url = $13, region = $14, updated_at = $15
		WHERE id = $1
		RETURNING ` + jobSelectColumns

	jobUpdateInsertQuery = `
		INSERT INTO job_updates (id, job_id, field_name, old_value, new_value, updated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

func jobColumns() []string {
	return []string{
		"id", "customer_name", "customer_phone", "customer_address", "issue_description",
		"subcontractor_id", "status", "materials", "sale_price", "parts_cost", "profit", "notes",
		"receipt_url", "region", "created_by", "created_at", "updated_at",
	}
}

// Create inserts a fully built job. The caller assigns the ID; a primary key
// collision is reported as ErrJobIDConflict so the caller can regenerate.
func (r *JobRepo) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	if job.ID == "" {
		return nil, apperrors.ValidationField("id", "job id is required")
	}
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.timeProvider.Now().UTC()
	}

	var out model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryOne[model.Job](ctx, conn, jobInsertQuery,
			job.ID,
			job.CustomerName,
			job.CustomerPhone,
			job.CustomerAddress,
			job.IssueDescription,
			job.SubcontractorID,
			string(job.Status),
			job.Materials,
			job.SalePrice,
			job.PartsCost,
			job.Profit,
			job.Notes,
			job.ReceiptURL,
			job.Region,
			job.CreatedBy,
			createdAt,
		)
		return e
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == "jobs_pkey" {
			return nil, ErrJobIDConflict
		}
		return nil, fmt.Errorf("insert job: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// GetByID retrieves a job by ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		job, e = pgxutil.QueryOne[model.Job](ctx, conn, jobGetByIDQuery, id)
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job by ID: %w", err)
	}
	return &job, nil
}

// Exists reports whether a job with the given ID is stored.
func (r *JobRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		exists, e = pgxutil.QueryScalar[bool](ctx, conn, jobExistsQuery, id)
		return e
	})
	if err != nil {
		return false, fmt.Errorf("check job exists: %w", err)
	}
	return exists, nil
}

// List retrieves jobs newest first with optional exact-match filters.
func (r *JobRepo) List(ctx context.Context, opts model.JobsListOptions) ([]model.Job, error) {
	query, args := database.BuildListQuery(buildJobQueryOptions(opts))

	var out []model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryAll[model.Job](ctx, conn, query, args...)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return out, nil
}

func buildJobQueryOptions(opts model.JobsListOptions) *database.ListQueryOptions {
	limit, offset := clampPage(opts.Limit, opts.Offset)
	queryOpts := []database.ListQueryOption{
		database.WithColumns(jobColumns()...),
		database.WithOrderBy("created_at", sortDirDesc),
		database.WithOrderBy("id", sortDirAsc),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}

	if opts.Status != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("status", database.Equal, string(opts.Status)),
		))
	}
	switch sub := strings.TrimSpace(opts.SubcontractorID); sub {
	case "":
	case model.UnassignedFilter:
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("subcontractor_id", database.IsNull, nil),
		))
	default:
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereRawCond("subcontractor_id::text = $1", sub),
		))
	}
	if region := strings.TrimSpace(opts.Region); region != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("region", database.Equal, region),
		))
	}
	if opts.CreatedAfter != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("created_at", database.GreaterThanOrEqual, opts.CreatedAfter.UTC()),
		))
	}
	if opts.CreatedBefore != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("created_at", database.LessThanOrEqual, opts.CreatedBefore.UTC()),
		))
	}
	return database.NewListQueryOptions("jobs", queryOpts...)
}

// Update persists the new state of a job together with its audit records in
// a single transaction. Either both land or neither does.
func (r *JobRepo) Update(ctx context.Context, job model.Job, updates []model.JobUpdate) (*model.Job, error) {
	var out model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var e error
			out, e = pgxutil.QueryOne[model.Job](ctx, tx, jobUpdateQuery,
				job.ID,
				job.CustomerName,
				job.CustomerPhone,
				job.CustomerAddress,
				job.IssueDescription,
				job.SubcontractorID,
				string(job.Status),
				job.Materials,
				job.SalePrice,
				job.PartsCost,
				job.Profit,
				job.Notes,
				job.ReceiptURL,
				job.Region,
				job.UpdatedAt.UTC(),
			)
			if e != nil {
				return e
			}
			return appendJobUpdates(ctx, tx, updates, r.timeProvider)
		},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("update job: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// Delete deletes a job by ID. Its audit records cascade.
func (r *JobRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete job: %w", err)
	}
	return rows > 0, nil
}

// appendJobUpdates sends one insert per record as a single batch on tx.
func appendJobUpdates(ctx context.Context, tx pgx.Tx, updates []model.JobUpdate, tp TimeProvider) error {
	if len(updates) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, u := range updates {
		id := u.ID
		if id == "" {
			id = uuid.NewString()
		}
		createdAt := u.CreatedAt
		if createdAt.IsZero() {
			createdAt = tp.Now()
		}
		batch.Queue(jobUpdateInsertQuery, id, u.JobID, u.FieldName, u.OldValue, u.NewValue, u.UpdatedBy, createdAt.UTC())
	}
	results := tx.SendBatch(ctx, batch)
	for range updates {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert job update: %w", err)
		}
	}
	return results.Close()
}
