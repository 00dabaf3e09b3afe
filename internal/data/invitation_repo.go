package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/dispatch-api/internal/core"
	"github.com/target/dispatch-api/internal/data/pgxutil"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
)

// InvitationRepo provides database operations for admin invitations.
type InvitationRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewInvitationRepo creates a new InvitationRepo with real time provider.
func NewInvitationRepo(db *sql.DB) *InvitationRepo {
	return &InvitationRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewInvitationRepoWithTimeProvider creates a new InvitationRepo with a custom time provider.
func NewInvitationRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *InvitationRepo {
	return &InvitationRepo{DB: db, timeProvider: tp}
}

const (
	invitationColumns = `id, email, invited_by, token_hash, expires_at, used_at, created_at`

	invitationInsertQuery = `
		INSERT INTO admin_invitations (email, invited_by, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + invitationColumns

	invitationByHashQuery = `SELECT ` + invitationColumns + ` FROM admin_invitations WHERE token_hash = $1`

	invitationListQuery = `SELECT ` + invitationColumns + ` FROM admin_invitations ORDER BY created_at DESC`

	// Single use: the row only matches while unused and unexpired.
	invitationMarkUsedQuery = `
		UPDATE admin_invitations SET used_at = $2
		WHERE id::text = $1 AND used_at IS NULL AND expires_at > $2
		RETURNING ` + invitationColumns

	invitationReleaseQuery = `
		UPDATE admin_invitations SET used_at = NULL
		WHERE id::text = $1 AND used_at = $2`

	invitationRevokeQuery = `
		UPDATE admin_invitations SET expires_at = $2
		WHERE id::text = $1 AND used_at IS NULL AND expires_at > $2
		RETURNING ` + invitationColumns

	invitationReapQuery = `
		DELETE FROM admin_invitations
		WHERE id IN (
			SELECT id FROM admin_invitations
			WHERE (expires_at < $1 OR used_at < $1)
			ORDER BY expires_at
			LIMIT $2
		)`
)

// Create stores a new invitation.
func (r *InvitationRepo) Create(ctx context.Context, p core.CreateInvitationParams) (*model.AdminInvitation, error) {
	if p.TokenHash == "" {
		return nil, errors.New("token hash is required")
	}
	var out model.AdminInvitation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryOne[model.AdminInvitation](ctx, conn, invitationInsertQuery,
			p.Email, p.InvitedBy, p.TokenHash, p.ExpiresAt.UTC(), r.timeProvider.Now().UTC())
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("insert invitation: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// GetByTokenHash looks an invitation up by the hash of its token.
func (r *InvitationRepo) GetByTokenHash(ctx context.Context, hash string) (*model.AdminInvitation, error) {
	var out model.AdminInvitation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryOne[model.AdminInvitation](ctx, conn, invitationByHashQuery, hash)
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return &out, nil
}

// List returns invitations newest first.
func (r *InvitationRepo) List(ctx context.Context) ([]model.AdminInvitation, error) {
	var out []model.AdminInvitation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryAll[model.AdminInvitation](ctx, conn, invitationListQuery)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return out, nil
}

// MarkUsed consumes a pending invitation. A used, revoked or expired
// invitation yields ErrInvitationUnavailable.
func (r *InvitationRepo) MarkUsed(ctx context.Context, id string) (*model.AdminInvitation, error) {
	return r.transition(ctx, invitationMarkUsedQuery, id)
}

// ReleaseUse reopens an invitation consumed at usedAt. A row consumed at a
// different instant is left alone and reported as ErrInvitationUnavailable.
func (r *InvitationRepo) ReleaseUse(ctx context.Context, id string, usedAt time.Time) error {
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, invitationReleaseQuery, id, usedAt.UTC())
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return ErrInvitationUnavailable
		}
		return nil
	})
	if errors.Is(err, ErrInvitationUnavailable) {
		return err
	}
	if err != nil {
		return fmt.Errorf("release invitation: %w", err)
	}
	return nil
}

// Revoke forces a pending invitation's expiry to now.
func (r *InvitationRepo) Revoke(ctx context.Context, id string) (*model.AdminInvitation, error) {
	return r.transition(ctx, invitationRevokeQuery, id)
}

func (r *InvitationRepo) transition(ctx context.Context, query, id string) (*model.AdminInvitation, error) {
	var out model.AdminInvitation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var e error
		out, e = pgxutil.QueryOne[model.AdminInvitation](ctx, conn, query, id, r.timeProvider.Now().UTC())
		if !errors.Is(e, pgx.ErrNoRows) {
			return e
		}
		exists, existsErr := pgxutil.QueryScalar[bool](ctx, conn,
			`SELECT EXISTS(SELECT 1 FROM admin_invitations WHERE id::text = $1)`, id)
		switch {
		case existsErr != nil:
			return existsErr
		case exists:
			return ErrInvitationUnavailable
		default:
			return ErrInvitationNotFound
		}
	})
	if err != nil {
		if errors.Is(err, ErrInvitationUnavailable) || errors.Is(err, ErrInvitationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update invitation: %w", err)
	}
	return &out, nil
}

// DeleteExpiredBefore removes up to limit invitations that expired or were
// used before cutoff and returns how many were removed.
func (r *InvitationRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var n int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, invitationReapQuery, cutoff.UTC(), limit)
		if err != nil {
			return err
		}
		n = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete expired invitations: %w", err)
	}
	return n, nil
}
