package cache

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/skills-warrior/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/skills-warrior/internal/config"
	"github.com/fairyhunter13/skills-warrior/internal/domain"
)

// Backend bundles a cache with its optional purger, health check and closer.
type Backend struct {
	Name   string
	Cache  domain.PageCache
	Purger Purger                          // nil when the store expires keys itself
	Ping   func(ctx context.Context) error // nil for in-process backends
	Closer io.Closer
	Redis  *redis.Client // redis backend only
}

// Close releases the underlying connection, if any.
func (b Backend) Close() error {
	if b.Closer == nil {
		return nil
	}
	return b.Closer.Close()
}

type closerFunc func()

func (f closerFunc) Close() error { f(); return nil }

// Open builds the backend named by cfg.CacheBackend.
func Open(ctx context.Context, cfg config.Config) (Backend, error) {
	name := cfg.CacheBackendName()
	switch name {
	case config.CacheNone:
		return Backend{Name: name, Cache: None{}}, nil
	case config.CacheMemory, "":
		m := NewMemory(cfg.PageCacheSize)
		return Backend{Name: config.CacheMemory, Cache: m, Purger: m}, nil
	case config.CacheRedis:
		c, rdb, err := NewRedisFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return Backend{}, fmt.Errorf("op=cache.Open: %w", err)
		}
		return Backend{
			Name:   name,
			Cache:  c,
			Ping:   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			Closer: rdb,
			Redis:  rdb,
		}, nil
	case config.CachePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return Backend{}, fmt.Errorf("op=cache.Open: %w", err)
		}
		repo := postgres.NewPageCacheRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return Backend{}, fmt.Errorf("op=cache.Open: %w", err)
		}
		return Backend{
			Name:   name,
			Cache:  repo,
			Purger: repo,
			Ping:   repo.Ping,
			Closer: closerFunc(pool.Close),
		}, nil
	}
	return Backend{}, fmt.Errorf("op=cache.Open: %w: unknown cache backend %q", domain.ErrInvalidArgument, cfg.CacheBackend)
}
