package data

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/dispatch-api/internal/testutil"
)

func newTestCacheRepo(t *testing.T) *RedisCacheRepo {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCacheRepoWithPrefix(client, "test:"+uuid.NewString()+":")
}

func TestRedisCacheRepo_SetGetDelete(t *testing.T) {
	repo := newTestCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k1", []byte("v1"), time.Minute))

	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	exists, err := repo.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, exists)

	deleted, err := repo.Delete(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err = repo.Delete(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRedisCacheRepo_SetIfNotExists(t *testing.T) {
	repo := newTestCacheRepo(t)
	ctx := context.Background()

	set, err := repo.SetIfNotExists(ctx, "notify:abc", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = repo.SetIfNotExists(ctx, "notify:abc", []byte("2"), time.Minute)
	require.NoError(t, err)
	assert.False(t, set)

	got, err := repo.Get(ctx, "notify:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
}

func TestRedisCacheRepo_EmptyKey(t *testing.T) {
	repo := NewRedisCacheRepo(nil)
	ctx := context.Background()

	_, err := repo.Get(ctx, "")
	require.ErrorIs(t, err, errEmptyKey)
	require.ErrorIs(t, repo.Set(ctx, "", nil, 0), errEmptyKey)
	_, err = repo.SetIfNotExists(ctx, "", nil, 0)
	require.ErrorIs(t, err, errEmptyKey)
}
