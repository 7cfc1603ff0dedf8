package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(context.Background(), RedisStoreConfig{Address: mr.Addr(), Prefix: "musicalarm:secret:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_SaveRetrieveDelete(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	_, found, err := store.Retrieve(ctx, "spotify_access_token")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Save(ctx, "spotify_access_token", "at"))
	raw, err := mr.Get("musicalarm:secret:spotify_access_token")
	require.NoError(t, err)
	assert.Equal(t, "at", raw)
	assert.Zero(t, mr.TTL("musicalarm:secret:spotify_access_token"))

	value, found, err := store.Retrieve(ctx, "spotify_access_token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "at", value)

	require.NoError(t, store.Delete(ctx, "spotify_access_token"))
	require.NoError(t, store.Delete(ctx, "spotify_access_token"))
	assert.False(t, mr.Exists("musicalarm:secret:spotify_access_token"))
}

func TestRedisStore_ConnectFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStore(context.Background(), RedisStoreConfig{Address: addr})
	assert.Error(t, err)
}

func TestRedisStore_SurfacesServerErrors(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.SetError("LOADING")
	_, _, err := store.Retrieve(context.Background(), "spotify_refresh_token")
	assert.Error(t, err)
	mr.SetError("")
}
