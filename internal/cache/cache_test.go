package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, "test"), mr
}

func TestRedis_GetSet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "/api/shares")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "/api/shares", []byte("data"), time.Minute))
	assert.True(t, mr.Exists("test:/api/shares"))

	v, ok, err := c.Get(ctx, "/api/shares")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("data"), v)

	mr.FastForward(2 * time.Minute)

	_, ok, err = c.Get(ctx, "/api/shares")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_Invalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for _, k := range []string{"/api/shares", "/api/shares?page=2", "/api/shares/1", "/api/comments/share/1"} {
		require.NoError(t, c.Set(ctx, k, []byte("x"), time.Minute))
	}
	require.NoError(t, mr.Set("other:/api/shares", "x"))

	require.NoError(t, c.Invalidate(ctx, "/api/shares"))

	assert.False(t, mr.Exists("test:/api/shares"))
	assert.False(t, mr.Exists("test:/api/shares?page=2"))
	assert.False(t, mr.Exists("test:/api/shares/1"))
	assert.True(t, mr.Exists("test:/api/comments/share/1"))
	assert.True(t, mr.Exists("other:/api/shares"))
}

func TestRedis_InvalidateEscapesGlob(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "/a?b", []byte("x"), time.Minute))
	require.NoError(t, c.Set(ctx, "/axb", []byte("x"), time.Minute))

	require.NoError(t, c.Invalidate(ctx, "/a?"))

	assert.False(t, mr.Exists("test:/a?b"))
	assert.True(t, mr.Exists("test:/axb"))
}

func TestRedis_Unavailable(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, _, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	require.Error(t, c.Ping(context.Background()))
}
