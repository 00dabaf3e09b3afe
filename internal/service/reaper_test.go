package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/dispatch-api/internal/mocks"
)

func newTestReaper(t *testing.T, batch int) (*mocks.MockInvitationRepository, *recordingMetrics, *ReaperService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockInvitationRepository(ctrl)
	rec := &recordingMetrics{}
	svc, err := NewReaperService(ReaperServiceOptions{
		Repo: repo,
		Config: ReaperConfig{
			Interval:  time.Hour,
			Retention: 24 * time.Hour,
			BatchSize: batch,
		},
		Logger:  quietLogger(),
		Metrics: rec,
		Clock:   stubClock{now: testNow},
	})
	require.NoError(t, err)
	return repo, rec, svc
}

func TestNewReaperService(t *testing.T) {
	t.Run("requires repo", func(t *testing.T) {
		_, err := NewReaperService(ReaperServiceOptions{Config: ReaperConfig{Interval: time.Minute}})
		require.Error(t, err)
	})

	t.Run("requires positive interval", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		_, err := NewReaperService(ReaperServiceOptions{Repo: mocks.NewMockInvitationRepository(ctrl)})
		require.Error(t, err)
	})

	t.Run("defaults batch size", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc, err := NewReaperService(ReaperServiceOptions{
			Repo:   mocks.NewMockInvitationRepository(ctrl),
			Config: ReaperConfig{Interval: time.Minute},
		})
		require.NoError(t, err)
		assert.Equal(t, 500, svc.config.BatchSize)
	})
}

func TestReaperService_Sweep_DrainsFullBatches(t *testing.T) {
	repo, rec, svc := newTestReaper(t, 2)
	cutoff := testNow.Add(-24 * time.Hour)

	gomock.InOrder(
		repo.EXPECT().DeleteExpiredBefore(gomock.Any(), cutoff, 2).Return(int64(2), nil),
		repo.EXPECT().DeleteExpiredBefore(gomock.Any(), cutoff, 2).Return(int64(2), nil),
		repo.EXPECT().DeleteExpiredBefore(gomock.Any(), cutoff, 2).Return(int64(1), nil),
	)

	n, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	c, ok := rec.find("reaper.deleted")
	require.True(t, ok)
	assert.Equal(t, int64(5), c.Value)
	assert.Equal(t, "success", c.Tags["result"])
	assert.Equal(t, "invitations", c.Tags["task"])
}

func TestReaperService_Sweep_NothingToDelete(t *testing.T) {
	repo, rec, svc := newTestReaper(t, 10)
	repo.EXPECT().DeleteExpiredBefore(gomock.Any(), gomock.Any(), 10).Return(int64(0), nil)

	n, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	c, ok := rec.find("reaper.deleted")
	require.True(t, ok)
	assert.Equal(t, "noop", c.Tags["result"])
}

func TestReaperService_Sweep_RepositoryError(t *testing.T) {
	repo, rec, svc := newTestReaper(t, 2)
	boom := errors.New("connection reset")

	gomock.InOrder(
		repo.EXPECT().DeleteExpiredBefore(gomock.Any(), gomock.Any(), 2).Return(int64(2), nil),
		repo.EXPECT().DeleteExpiredBefore(gomock.Any(), gomock.Any(), 2).Return(int64(0), boom),
	)

	n, err := svc.Sweep(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(2), n)

	c, ok := rec.find("reaper.deleted")
	require.True(t, ok)
	assert.Equal(t, "error", c.Tags["result"])
}

func TestReaperService_Sweep_StopsOnCancel(t *testing.T) {
	repo, _, svc := newTestReaper(t, 1)
	ctx, cancel := context.WithCancel(context.Background())

	repo.EXPECT().DeleteExpiredBefore(gomock.Any(), gomock.Any(), 1).DoAndReturn(
		func(context.Context, time.Time, int) (int64, error) {
			cancel()
			return 1, nil
		})

	n, err := svc.Sweep(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(1), n)
}

func TestReaperService_Run_ReturnsNilOnCancel(t *testing.T) {
	repo, _, svc := newTestReaper(t, 10)
	ctx, cancel := context.WithCancel(context.Background())

	repo.EXPECT().DeleteExpiredBefore(gomock.Any(), gomock.Any(), 10).DoAndReturn(
		func(context.Context, time.Time, int) (int64, error) {
			cancel()
			return 0, nil
		}).MaxTimes(1)

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// Cancellation during the jitter wait skips the sweep, so cancel here too.
	time.AfterFunc(50*time.Millisecond, cancel)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop after cancel")
	}
}
