package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/dispatch-api/internal/domain/auth"
	apperrors "github.com/target/dispatch-api/internal/errors"
	"github.com/target/dispatch-api/internal/testutil"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStoreWithPrefix(client, "test:session:"+uuid.NewString()+":")
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := domainauth.Session{
		ID:        "s-1",
		UserID:    "user-123",
		Email:     "dispatcher@example.com",
		Role:      domainauth.RoleUser,
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, session.UserID, got.UserID)
	assert.Equal(t, session.Role, got.Role)
	assert.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestSessionStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = store.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "s-2", ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, store.Delete(ctx, "s-2"))
	require.NoError(t, store.Delete(ctx, "s-2"))

	_, err := store.Get(ctx, "s-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionStore_RejectsExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Save(ctx, domainauth.Session{ID: "s-3", ExpiresAt: time.Now().Add(-time.Minute)})
	require.Error(t, err)

	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "s-4", ExpiresAt: time.Now().Add(time.Hour)}))
	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = store.Get(ctx, "s-4")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionStore_SaveRequiresID(t *testing.T) {
	store := NewSessionStore(nil)
	assert.Error(t, store.Save(context.Background(), domainauth.Session{ExpiresAt: time.Now().Add(time.Hour)}))
}
