package ratelimiter

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLuaLimiter(t *testing.T, cfg BucketConfig) (*RedisLuaLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLuaLimiter(rdb, cfg), mr
}

func TestNewRedisLuaLimiter_NilClient(t *testing.T) {
	assert.Nil(t, NewRedisLuaLimiter(nil, BucketConfig{Capacity: 1, RefillRate: 1}))
}

func TestAllow_NilLimiter_FailOpen(t *testing.T) {
	var limiter *RedisLuaLimiter
	allowed, retryAfter, err := limiter.Allow(context.Background(), "any", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
	require.NoError(t, limiter.Wait(context.Background(), "any"))
}

func TestAllow_DisabledBucket_FailOpen(t *testing.T) {
	limiter, _ := newTestRedisLuaLimiter(t, BucketConfig{})
	for i := 0; i < 10; i++ {
		allowed, _, err := limiter.Allow(context.Background(), "example.com", 1)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestAllow_RespectsCapacityAndRetryAfter(t *testing.T) {
	limiter, mr := newTestRedisLuaLimiter(t, BucketConfig{Capacity: 3, RefillRate: 0.5})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, retryAfter, err := limiter.Allow(ctx, "jobs.example.com", 1)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d", i)
		assert.Zero(t, retryAfter)
	}

	allowed, retryAfter, err := limiter.Allow(ctx, "jobs.example.com", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
	// one token at 0.5/s: roughly two seconds, fractional part preserved
	assert.Greater(t, retryAfter, time.Second)
	assert.LessOrEqual(t, retryAfter, 2*time.Second)

	// other hosts have their own bucket
	allowed, _, err = limiter.Allow(ctx, "other.example.com", 1)
	require.NoError(t, err)
	assert.True(t, allowed)

	assert.True(t, mr.Exists("sw:rate:jobs.example.com"))
	assert.Greater(t, mr.TTL("sw:rate:jobs.example.com"), time.Duration(0))
}

func TestWait_HonoursContext(t *testing.T) {
	limiter, _ := newTestRedisLuaLimiter(t, BucketConfig{Capacity: 1, RefillRate: 0.001})
	require.NoError(t, limiter.Wait(context.Background(), "slow.example.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := limiter.Wait(ctx, "slow.example.com")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAllow_RedisDown_FailsOpen(t *testing.T) {
	limiter, mr := newTestRedisLuaLimiter(t, BucketConfig{Capacity: 1, RefillRate: 1})
	mr.Close()
	allowed, _, err := limiter.Allow(context.Background(), "example.com", 1)
	require.Error(t, err)
	assert.True(t, allowed)
	require.NoError(t, limiter.Wait(context.Background(), "example.com"))
}
