package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/target/dispatch-api/internal/core"
	"github.com/target/dispatch-api/internal/data/pgxutil"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
)

// ProfileRepo provides database operations for dashboard users.
type ProfileRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewProfileRepo creates a new ProfileRepo with real time provider.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewProfileRepoWithTimeProvider creates a new ProfileRepo with a custom time provider.
func NewProfileRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: tp}
}

const (
	profileColumns = `id, email, display_name, role, active, confirmed, password_hash,
		last_login_at, created_at, updated_at`

	profileListQuery       = `SELECT ` + profileColumns + ` FROM profiles ORDER BY lower(email) ASC`
	profileGetByIDQuery    = `SELECT ` + profileColumns + ` FROM profiles WHERE id::text = $1`
	profileGetByEmailQuery = `SELECT ` + profileColumns + ` FROM profiles WHERE lower(email) = lower($1)`

	profileInsertQuery = `
		INSERT INTO profiles (email, display_name, role, confirmed, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING ` + profileColumns

	profileSetRoleQuery = `
		UPDATE profiles SET role = $2, updated_at = $3 WHERE id::text = $1
		RETURNING ` + profileColumns

	profileSetPasswordQuery = `
		UPDATE profiles SET password_hash = $2, updated_at = $3 WHERE id::text = $1`

	profileTouchLoginQuery = `UPDATE profiles SET last_login_at = $2 WHERE id::text = $1`

	profileCountAdminsQuery = `SELECT count(*) FROM profiles WHERE role = 'admin' AND active`
)

// Create inserts a new user. A duplicate email yields ErrProfileEmailExists.
func (r *ProfileRepo) Create(ctx context.Context, p core.CreateProfileParams) (*model.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return nil, apperrors.ValidationField("email", "email is required")
	}
	role := p.Role
	if role == "" {
		role = model.ProfileRoleUser
	}

	var out model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryOne[model.Profile](ctx, conn, profileInsertQuery,
			email, p.DisplayName, string(role), p.Confirmed, p.PasswordHash, r.timeProvider.Now().UTC())
		return e
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrProfileEmailExists
		}
		return nil, fmt.Errorf("insert profile: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// List returns all users ordered by email.
func (r *ProfileRepo) List(ctx context.Context) ([]model.Profile, error) {
	var out []model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryAll[model.Profile](ctx, conn, profileListQuery)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return out, nil
}

// GetByID retrieves a user by ID.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	return r.getOne(ctx, profileGetByIDQuery, id)
}

// GetByEmail retrieves a user by case-insensitive email.
func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return r.getOne(ctx, profileGetByEmailQuery, strings.TrimSpace(email))
}

func (r *ProfileRepo) getOne(ctx context.Context, query string, arg string) (*model.Profile, error) {
	var out model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryOne[model.Profile](ctx, conn, query, arg)
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &out, nil
}

// Delete removes a user.
func (r *ProfileRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM profiles WHERE id::text = $1`, id)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete profile: %w", err)
	}
	return rows > 0, nil
}

// SetRole changes a user's role.
func (r *ProfileRepo) SetRole(ctx context.Context, id string, role model.ProfileRole) (*model.Profile, error) {
	if !role.Valid() {
		return nil, apperrors.ValidationField("role", "role must be admin or user")
	}
	var out model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryOne[model.Profile](ctx, conn, profileSetRoleQuery,
			id, string(role), r.timeProvider.Now().UTC())
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("set profile role: %w", err)
	}
	return &out, nil
}

// SetPasswordHash replaces a user's password hash.
func (r *ProfileRepo) SetPasswordHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx, profileSetPasswordQuery, id, hash, r.timeProvider.Now().UTC())
}

// TouchLogin records a successful login.
func (r *ProfileRepo) TouchLogin(ctx context.Context, id string) error {
	return r.execOne(ctx, profileTouchLoginQuery, id, r.timeProvider.Now().UTC())
}

func (r *ProfileRepo) execOne(ctx context.Context, query string, args ...any) error {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if rows == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// CountAdmins returns the number of active admins.
func (r *ProfileRepo) CountAdmins(ctx context.Context) (int, error) {
	var n int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		n, e = pgxutil.QueryScalar[int64](ctx, conn, profileCountAdminsQuery)
		return e
	})
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return int(n), nil
}
