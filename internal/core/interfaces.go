// Package core defines the repository ports the service layer depends on.
// Implementations live in internal/data.
package core

import (
	"context"
	"time"

	"github.com/target/dispatch-api/internal/domain/model"
)

// JobRepository defines the interface for job data operations.
type JobRepository interface {
	Create(ctx context.Context, job model.Job) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, opts model.JobsListOptions) ([]model.Job, error)
	// Update stores the job and its audit records in one transaction.
	Update(ctx context.Context, job model.Job, updates []model.JobUpdate) (*model.Job, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// JobUpdateRepository is the append-only job audit store.
type JobUpdateRepository interface {
	Append(ctx context.Context, updates []model.JobUpdate) error
	ListByJob(ctx context.Context, jobID string) ([]model.JobUpdate, error)
}

// SubcontractorRepository defines the interface for subcontractor data operations.
type SubcontractorRepository interface {
	List(ctx context.Context) ([]model.Subcontractor, error)
	GetByID(ctx context.Context, id string) (*model.Subcontractor, error)
	Create(ctx context.Context, req *model.CreateSubcontractorRequest) (*model.Subcontractor, error)
	Update(ctx context.Context, id string, req model.UpdateSubcontractorRequest) (*model.Subcontractor, error)
	// Delete removes the subcontractor and unassigns its jobs, recording a
	// subcontractor_id audit row per job attributed to updatedBy. It returns
	// how many jobs were unassigned.
	Delete(ctx context.Context, id, updatedBy string) (bool, int64, error)
}

// CreateProfileParams carries a validated user with an already hashed password.
type CreateProfileParams struct {
	Email        string
	DisplayName  string
	Role         model.ProfileRole
	Confirmed    bool
	PasswordHash *string
}

// ProfileRepository defines the interface for dashboard user data operations.
type ProfileRepository interface {
	List(ctx context.Context) ([]model.Profile, error)
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	Create(ctx context.Context, p CreateProfileParams) (*model.Profile, error)
	Delete(ctx context.Context, id string) (bool, error)
	SetRole(ctx context.Context, id string, role model.ProfileRole) (*model.Profile, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
	TouchLogin(ctx context.Context, id string) error
	CountAdmins(ctx context.Context) (int, error)
}

// CreateInvitationParams carries the stored form of a newly issued invitation.
type CreateInvitationParams struct {
	Email     string
	InvitedBy string
	TokenHash string
	ExpiresAt time.Time
}

// InvitationRepository defines the interface for admin invitation data operations.
type InvitationRepository interface {
	Create(ctx context.Context, p CreateInvitationParams) (*model.AdminInvitation, error)
	GetByTokenHash(ctx context.Context, hash string) (*model.AdminInvitation, error)
	List(ctx context.Context) ([]model.AdminInvitation, error)
	// MarkUsed consumes a pending invitation exactly once.
	MarkUsed(ctx context.Context, id string) (*model.AdminInvitation, error)
	// ReleaseUse undoes MarkUsed when signup fails afterwards. It only
	// matches the row while used_at still equals usedAt.
	ReleaseUse(ctx context.Context, id string, usedAt time.Time) error
	Revoke(ctx context.Context, id string) (*model.AdminInvitation, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
