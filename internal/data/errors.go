package data

import apperrors "github.com/target/dispatch-api/internal/errors"

// Shared sentinel errors for data-layer repositories. They carry AppError codes
// so services and handlers can classify them without importing this package.
var (
	ErrJobNotFound           = apperrors.NotFound("job not found")
	ErrJobIDConflict         = apperrors.Conflict("job id already exists")
	ErrSubcontractorNotFound = apperrors.NotFound("subcontractor not found")
	ErrProfileNotFound       = apperrors.NotFound("user not found")
	ErrProfileEmailExists    = apperrors.ValidationField("email", "a user with this email already exists")
	ErrInvitationNotFound    = apperrors.NotFound("invitation not found")
	ErrInvitationUnavailable = apperrors.Conflict("invitation is no longer valid")
)

const (
	sortDirAsc  = "ASC"
	sortDirDesc = "DESC"

	defaultListLimit = 500
	maxListLimit     = 5000
)

// clampPage normalizes a requested limit and offset.
func clampPage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	return limit, max(offset, 0)
}
