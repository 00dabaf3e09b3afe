package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/dispatch-api/internal/data/pgxutil"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
)

// SubcontractorRepo provides database operations for subcontractors.
type SubcontractorRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewSubcontractorRepo creates a new SubcontractorRepo with real time provider.
func NewSubcontractorRepo(db *sql.DB) *SubcontractorRepo {
	return &SubcontractorRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewSubcontractorRepoWithTimeProvider creates a new SubcontractorRepo with a custom time provider.
func NewSubcontractorRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *SubcontractorRepo {
	return &SubcontractorRepo{DB: db, timeProvider: tp}
}

const (
	subcontractorColumns = `id, name, phone, email, region, created_at, updated_at`

	subcontractorGetByIDQuery = `SELECT ` + subcontractorColumns + ` FROM subcontractors WHERE id::text = $1`

	subcontractorListQuery = `SELECT ` + subcontractorColumns + `
		FROM subcontractors
		ORDER BY lower(name) ASC, id ASC`

	subcontractorInsertQuery = `
		INSERT INTO subcontractors (name, phone, email, region, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING ` + subcontractorColumns

	subcontractorUnassignJobsQuery = `
		UPDATE jobs SET subcontractor_id = NULL, updated_at = $2
		WHERE subcontractor_id::text = $1
		RETURNING id`
)

// Create inserts a new subcontractor.
func (r *SubcontractorRepo) Create(
	ctx context.Context,
	req *model.CreateSubcontractorRequest,
) (*model.Subcontractor, error) {
	if req == nil {
		return nil, errors.New("create subcontractor request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.Subcontractor
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryOne[model.Subcontractor](ctx, conn, subcontractorInsertQuery,
			req.Name, req.Phone, req.Email, req.Region, r.timeProvider.Now().UTC())
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("insert subcontractor: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// GetByID retrieves a subcontractor by ID.
func (r *SubcontractorRepo) GetByID(ctx context.Context, id string) (*model.Subcontractor, error) {
	var out model.Subcontractor
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryOne[model.Subcontractor](ctx, conn, subcontractorGetByIDQuery, id)
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubcontractorNotFound
		}
		return nil, fmt.Errorf("failed to get subcontractor by ID: %w", err)
	}
	return &out, nil
}

// List returns all subcontractors ordered by name.
func (r *SubcontractorRepo) List(ctx context.Context) ([]model.Subcontractor, error) {
	var out []model.Subcontractor
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryAll[model.Subcontractor](ctx, conn, subcontractorListQuery)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list subcontractors: %w", err)
	}
	return out, nil
}

// Update updates the provided fields of a subcontractor.
func (r *SubcontractorRepo) Update(
	ctx context.Context,
	id string,
	req model.UpdateSubcontractorRequest,
) (*model.Subcontractor, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	setClause, args := r.buildUpdateClause(req)
	args = append(args, id)
	query := "UPDATE subcontractors SET " + setClause +
		" WHERE id::text = $" + strconv.Itoa(len(args)) +
		" RETURNING " + subcontractorColumns

	var out model.Subcontractor
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryOne[model.Subcontractor](ctx, conn, query, args...)
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubcontractorNotFound
		}
		return nil, fmt.Errorf("update subcontractor: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// buildUpdateClause builds the SQL SET clause and args for a validated request.
// updated_at is always refreshed.
func (r *SubcontractorRepo) buildUpdateClause(req model.UpdateSubcontractorRequest) (string, []any) {
	setParts := make([]string, 0, 5)
	args := make([]any, 0, 6)
	add := func(col string, v any) {
		args = append(args, v)
		setParts = append(setParts, col+" = $"+strconv.Itoa(len(args)))
	}

	if req.Name != nil {
		add("name", *req.Name)
	}
	if req.Phone != nil {
		add("phone", *req.Phone)
	}
	if req.Email != nil {
		add("email", *req.Email)
	}
	if req.Region != nil {
		add("region", *req.Region)
	}
	add("updated_at", r.timeProvider.Now().UTC())
	return strings.Join(setParts, ", "), args
}

// Delete removes a subcontractor and unassigns its jobs in the same
// transaction, appending one subcontractor_id audit row per unassigned job.
// It reports how many jobs were unassigned.
func (r *SubcontractorRepo) Delete(ctx context.Context, id, updatedBy string) (bool, int64, error) {
	var deleted bool
	var unassigned int64
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			now := r.timeProvider.Now().UTC()
			rows, err := tx.Query(ctx, subcontractorUnassignJobsQuery, id, now)
			if err != nil {
				return fmt.Errorf("unassign jobs: %w", err)
			}
			jobIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
			if err != nil {
				return fmt.Errorf("unassign jobs: %w", err)
			}
			unassigned = int64(len(jobIDs))
			if err = appendJobUpdates(ctx, tx, unassignUpdates(jobIDs, id, updatedBy, now), r.timeProvider); err != nil {
				return err
			}

			ct, err := tx.Exec(ctx, `DELETE FROM subcontractors WHERE id::text = $1`, id)
			if err != nil {
				return err
			}
			deleted = ct.RowsAffected() > 0
			return nil
		},
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to delete subcontractor: %w", err)
	}
	return deleted, unassigned, nil
}

func unassignUpdates(jobIDs []string, subcontractorID, updatedBy string, at time.Time) []model.JobUpdate {
	out := make([]model.JobUpdate, 0, len(jobIDs))
	for _, jobID := range jobIDs {
		old := subcontractorID
		out = append(out, model.JobUpdate{
			JobID:     jobID,
			FieldName: "subcontractor_id",
			OldValue:  &old,
			UpdatedBy: updatedBy,
			CreatedAt: at,
		})
	}
	return out
}
