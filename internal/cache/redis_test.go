package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := NewRedis(context.Background(), RedisOptions{Addr: mr.Addr(), Prefix: "test:"})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r, mr
}

func TestRedis_GetSet(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)

	_, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "k", "v", time.Minute))
	v, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.True(t, mr.Exists("test:k"), "keys are prefixed")
}

func TestRedis_AddAndExpiry(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)

	added, err := r.Add(ctx, "k", "first", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.Add(ctx, "k", "second", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, added)

	mr.FastForward(31 * time.Second)
	added, err = r.Add(ctx, "k", "third", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, added)
}

func TestRedis_Unavailable(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)
	mr.Close()

	_, err := r.Add(ctx, "k", "v", time.Second)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, _, err = r.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewRedis_PingFailure(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisOptions{Addr: "127.0.0.1:1"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewRedisFromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedisFromClient(client, "")
	defer r.Close()

	require.NoError(t, r.Set(context.Background(), "plain", "v", 0))
	got, err := mr.Get("plain")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
