package session

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "rc:session:"), mr
}

func TestRedisStore_SetGetRemove(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	_, found, err := store.Get(ctx, UserKey)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, map[string]string{UserKey: `{"id":"u"}`, AuthFlagKey: "1"}))
	v, found, err := store.Get(ctx, AuthFlagKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1", v)

	raw, err := mr.Get("rc:session:" + UserKey)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u"}`, raw)

	require.NoError(t, store.Remove(ctx, UserKey, AuthFlagKey))
	assert.False(t, mr.Exists("rc:session:"+UserKey))
	assert.False(t, mr.Exists("rc:session:"+AuthFlagKey))
	require.NoError(t, store.Remove(ctx))
}

func TestRedisStore_GetFailsWhenServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, "rc:session:")
	mr.Close()

	_, _, err = store.Get(context.Background(), UserKey)
	assert.Error(t, err)
}

func TestSynchronizer_WithRedisStore(t *testing.T) {
	store, _ := newRedisStore(t)
	s := New(&stubAuthority{signInResult: alice()}, store, nil, nil)

	_, err := s.Login(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	// a fresh synchronizer over the same store sees the persisted record
	restarted := New(&stubAuthority{}, store, nil, nil)
	cached, ok := restarted.CachedIdentity(context.Background())
	require.True(t, ok)
	assert.Equal(t, "user-1", cached.ID)
	assert.True(t, restarted.IsAuthenticated(context.Background()))

	restarted.Logout(context.Background())
	assert.False(t, s.IsAuthenticated(context.Background()))
}
