package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/dispatch-api/internal/core"
	"github.com/target/dispatch-api/internal/domain/model"
	"github.com/target/dispatch-api/internal/testutil"
)

func TestProfileRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewProfileRepo(db)

	admin, err := repo.Create(ctx, core.CreateProfileParams{
		Email: "Boss@Example.com", DisplayName: "Boss", Role: model.ProfileRoleAdmin, Confirmed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "boss@example.com", admin.Email)

	_, err = repo.Create(ctx, core.CreateProfileParams{Email: "boss@example.com"})
	require.ErrorIs(t, err, ErrProfileEmailExists)

	got, err := repo.GetByEmail(ctx, "BOSS@example.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	n, err := repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	demoted, err := repo.SetRole(ctx, admin.ID, model.ProfileRoleUser)
	require.NoError(t, err)
	assert.Equal(t, model.ProfileRoleUser, demoted.Role)

	require.NoError(t, repo.SetPasswordHash(ctx, admin.ID, "hash"))
	require.NoError(t, repo.TouchLogin(ctx, admin.ID))
	require.ErrorIs(t, repo.TouchLogin(ctx, "00000000-0000-4000-8000-000000000000"), ErrProfileNotFound)

	deleted, err := repo.Delete(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestInvitationRepo_SingleUse(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	tp := NewFixedTimeProvider(testutil.TestTime())
	repo := NewInvitationRepoWithTimeProvider(db, tp)

	inv, err := repo.Create(ctx, core.CreateInvitationParams{
		Email: "new@example.com", InvitedBy: "boss@example.com", TokenHash: "h1",
		ExpiresAt: testutil.TestTime().Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)

	found, err := repo.GetByTokenHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, model.InvitationStatusPending, found.Status(tp.Now()))

	used, err := repo.MarkUsed(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, used.UsedAt)

	_, err = repo.MarkUsed(ctx, inv.ID)
	require.ErrorIs(t, err, ErrInvitationUnavailable)

	// a failed signup hands the invitation back
	require.NoError(t, repo.ReleaseUse(ctx, inv.ID, *used.UsedAt))
	require.ErrorIs(t, repo.ReleaseUse(ctx, inv.ID, *used.UsedAt), ErrInvitationUnavailable)
	used, err = repo.MarkUsed(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, used.UsedAt)

	_, err = repo.Revoke(ctx, "00000000-0000-4000-8000-000000000000")
	require.ErrorIs(t, err, ErrInvitationNotFound)

	tp.AddTime(30 * 24 * time.Hour)
	n, err := repo.DeleteExpiredBefore(ctx, tp.Now(), 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
