package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/skills-warrior/internal/config"
	"github.com/fairyhunter13/skills-warrior/internal/domain"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, config.Config{CacheBackend: "none"})
	require.NoError(t, err)
	assert.IsType(t, None{}, b.Cache)
	assert.Nil(t, b.Purger)
	require.NoError(t, b.Close())

	b, err = Open(ctx, config.Config{CacheBackend: " Memory ", PageCacheSize: 8})
	require.NoError(t, err)
	assert.Equal(t, config.CacheMemory, b.Name)
	assert.NotNil(t, b.Purger)

	mr := miniredis.RunT(t)
	b, err = Open(ctx, config.Config{CacheBackend: "redis", RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	require.NotNil(t, b.Ping)
	require.NoError(t, b.Ping(ctx))
	assert.NotNil(t, b.Redis)
	require.NoError(t, b.Cache.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, b.Close())

	_, err = Open(ctx, config.Config{CacheBackend: "redis", RedisURL: "not a url"})
	require.Error(t, err)

	_, err = Open(ctx, config.Config{CacheBackend: "sqlite"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

type fakePurger struct {
	calls int
	err   error
}

func (f *fakePurger) Purge(context.Context) (int64, error) {
	f.calls++
	return 2, f.err
}

func TestCleanupService(t *testing.T) {
	p := &fakePurger{}
	svc := NewCleanupService(p, "memory")
	require.NoError(t, svc.CleanupExpired(context.Background()))

	p.err = errors.New("db gone")
	require.Error(t, svc.CleanupExpired(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		svc.RunPeriodic(ctx, time.Hour)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunPeriodic did not stop on cancelled context")
	}
	assert.Equal(t, 3, p.calls)
}
