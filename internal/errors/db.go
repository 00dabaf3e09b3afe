package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField pulls the column list out of "Key (email)=(x) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// constraintFields maps named schema constraints to the API field and message
// reported for them. Constraints not listed fall back to Postgres metadata.
var constraintFields = map[string]struct{ field, message string }{
	"jobs_completed_requires_receipt": {"receipt_url", "a receipt is required before a job can be completed"},
	"jobs_pkey":                       {"id", "job id already exists"},
	"idx_profiles_email":              {"email", "a user with this email already exists"},
	"jobs_subcontractor_id_fkey":      {"subcontractor_id", "the assigned subcontractor does not exist"},
	"job_updates_job_id_fkey":         {"job_id", "the job does not exist"},
}

// tableNouns names tables in foreign-key messages.
var tableNouns = map[string]string{
	"jobs":              "job",
	"job_updates":       "job history",
	"subcontractors":    "subcontractor",
	"profiles":          "user",
	"admin_invitations": "invitation",
}

// MapDBError converts driver and context errors into AppErrors. Errors it
// does not recognise are returned unchanged.
func MapDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Code: ErrCodeTimeout, Message: "request timed out", Cause: err}
	case errors.Is(err, context.Canceled):
		return &AppError{Code: ErrCodeCanceled, Message: "request was canceled", Cause: err}
	case errors.Is(err, pgx.ErrNoRows):
		return &AppError{Code: ErrCodeNotFound, Message: "resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	known, hasKnown := constraintFields[pgErr.ConstraintName]
	out := &AppError{Cause: pgErr, Field: pgErr.ColumnName}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		out.Code, out.Message = ErrCodeConflict, "this value already exists"
		if out.Field == "" {
			out.Field = uniqueField(pgErr.Detail)
		}
	case pgerrcode.ForeignKeyViolation:
		out.Code, out.Message = ErrCodeForeignKey, foreignKeyMessage(pgErr)
	case pgerrcode.CheckViolation:
		out.Code, out.Message = ErrCodeValidation, "a field has an invalid value"
	case pgerrcode.NotNullViolation:
		out.Code, out.Message = ErrCodeValidation, "a required field is missing"
	default:
		return &AppError{Code: ErrCodeInternal, Message: "a database error occurred", Cause: pgErr}
	}
	if hasKnown {
		out.Field, out.Message = known.field, known.message
	}
	return out
}

// uniqueField returns the single column named in a unique violation detail,
// or "" for multi-column keys and expression indexes.
func uniqueField(detail string) string {
	m := reKeyField.FindStringSubmatch(detail)
	if len(m) != 2 || strings.ContainsAny(m[1], ",(") {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func foreignKeyMessage(pgErr *pgconn.PgError) string {
	detail := pgErr.Detail
	switch {
	case strings.Contains(detail, "is still referenced from table"):
		return "cannot delete: this item is still referenced by " + tableNoun(tableAfter(detail, "from table")) + " records"
	case strings.Contains(detail, "is not present in table"):
		return "the referenced " + tableNoun(tableAfter(detail, "in table")) + " does not exist"
	}
	return "this item is referenced by other records"
}

func tableAfter(detail, marker string) string {
	_, rest, ok := strings.Cut(detail, marker)
	if !ok {
		return ""
	}
	return strings.Trim(strings.TrimSpace(rest), `".`)
}

func tableNoun(table string) string {
	if n, ok := tableNouns[strings.ToLower(table)]; ok {
		return n
	}
	if table == "" {
		return "other"
	}
	return strings.ReplaceAll(table, "_", " ")
}
