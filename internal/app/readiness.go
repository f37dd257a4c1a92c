package app

import (
	"context"
	"fmt"

	httpserver "github.com/fairyhunter13/skills-warrior/internal/adapter/httpserver"
	"github.com/fairyhunter13/skills-warrior/internal/config"
)

// Pinger is the minimal interface for a dependency capable of Ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter is implemented by clients that track recent call outcomes.
type HealthReporter interface {
	Healthy() bool
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// BuildReadinessChecks returns the cache check, plus a tika check when
// TIKA_URL is set. In-process caches are always ready. A tika client that
// reports itself unhealthy fails without a network round trip.
func BuildReadinessChecks(cfg config.Config, cacheName string, cachePing, tika Pinger) []httpserver.ReadinessCheck {
	if cacheName == "" {
		cacheName = cfg.CacheBackendName()
	}
	checks := []httpserver.ReadinessCheck{{
		Name: "cache:" + cacheName,
		Check: func(ctx context.Context) error {
			if cachePing == nil {
				return nil
			}
			return cachePing.Ping(ctx)
		},
	}}
	if cfg.TikaEnabled() {
		checks = append(checks, httpserver.ReadinessCheck{
			Name: "tika",
			Check: func(ctx context.Context) error {
				if tika == nil {
					return fmt.Errorf("tika not configured")
				}
				if h, ok := tika.(HealthReporter); ok && !h.Healthy() {
					return fmt.Errorf("tika unhealthy: recent calls failed")
				}
				return tika.Ping(ctx)
			},
		})
	}
	return checks
}

// ReadinessChecks derives the checks from the wired services.
func (s *Services) ReadinessChecks(cfg config.Config) []httpserver.ReadinessCheck {
	var cachePing, tikaPing Pinger
	if s.Cache.Ping != nil {
		cachePing = PingFunc(s.Cache.Ping)
	}
	if s.Tika != nil {
		tikaPing = s.Tika
	}
	return BuildReadinessChecks(cfg, s.Cache.Name, cachePing, tikaPing)
}
