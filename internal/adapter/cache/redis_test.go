package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_GetSetTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	c := NewRedis(rdb)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "https://jobs.example.com/1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "https://jobs.example.com/1", "go grpc", time.Minute))
	v, ok, err := c.Get(ctx, "https://jobs.example.com/1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "go grpc", v)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], redisPrefix))
	assert.Equal(t, time.Minute, mr.TTL(keys[0]))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "https://jobs.example.com/1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_Down(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	c := NewRedis(rdb)
	mr.Close()

	_, _, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	require.Error(t, c.Set(context.Background(), "k", "v", time.Minute))
}
