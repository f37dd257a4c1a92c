package ratelimiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiter keeps one x/time/rate limiter per key in process memory.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewLocalLimiter allows perSecond events per key with the given burst.
// A non-positive perSecond disables limiting.
func NewLocalLimiter(perSecond float64, burst int) *LocalLimiter {
	if burst < 1 {
		burst = 1
	}
	lim := rate.Limit(perSecond)
	if perSecond <= 0 {
		lim = rate.Inf
	}
	return &LocalLimiter{limiters: map[string]*rate.Limiter{}, limit: lim, burst: burst}
}

func (l *LocalLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// Allow implements Limiter without blocking.
func (l *LocalLimiter) Allow(_ context.Context, key string, cost int64) (bool, time.Duration, error) {
	if cost <= 0 {
		cost = 1
	}
	r := l.get(key).ReserveN(time.Now(), int(cost))
	if !r.OK() {
		return false, 0, fmt.Errorf("op=ratelimiter.Allow: cost %d exceeds burst %d", cost, l.burst)
	}
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return false, d, nil
	}
	return true, 0, nil
}

// Wait blocks until key may proceed or ctx ends.
func (l *LocalLimiter) Wait(ctx context.Context, key string) error {
	if err := l.get(key).Wait(ctx); err != nil {
		return fmt.Errorf("op=ratelimiter.Wait: %w", err)
	}
	return nil
}
