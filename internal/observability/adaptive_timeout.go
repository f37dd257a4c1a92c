package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AdaptiveTimeoutManager shrinks the call timeout after fast successes and
// grows it after failures, staying within [min, max].
type AdaptiveTimeoutManager struct {
	mu sync.RWMutex

	baseTimeout time.Duration
	minTimeout  time.Duration
	maxTimeout  time.Duration

	successCount int64
	failureCount int64
	timeoutCount int64

	successFactor float64
	failureFactor float64
	timeoutFactor float64

	currentTimeout time.Duration
}

// NewAdaptiveTimeoutManager creates a new adaptive timeout manager
func NewAdaptiveTimeoutManager(baseTimeout, minTimeout, maxTimeout time.Duration) *AdaptiveTimeoutManager {
	if minTimeout <= 0 || minTimeout > baseTimeout {
		minTimeout = baseTimeout
	}
	if maxTimeout < baseTimeout {
		maxTimeout = baseTimeout
	}
	return &AdaptiveTimeoutManager{
		baseTimeout:    baseTimeout,
		minTimeout:     minTimeout,
		maxTimeout:     maxTimeout,
		currentTimeout: baseTimeout,
		successFactor:  0.95,
		failureFactor:  1.05,
		timeoutFactor:  1.10,
	}
}

// GetTimeout returns the current adaptive timeout
func (atm *AdaptiveTimeoutManager) GetTimeout() time.Duration {
	atm.mu.RLock()
	defer atm.mu.RUnlock()
	return atm.currentTimeout
}

// RecordSuccess lowers the timeout when the call finished in under half of it.
func (atm *AdaptiveTimeoutManager) RecordSuccess(duration time.Duration) {
	atm.mu.Lock()
	defer atm.mu.Unlock()

	atm.successCount++
	if duration < atm.currentTimeout/2 {
		atm.scale(atm.successFactor)
	}
}

// RecordFailure raises the timeout slightly.
func (atm *AdaptiveTimeoutManager) RecordFailure() {
	atm.mu.Lock()
	defer atm.mu.Unlock()

	atm.failureCount++
	atm.scale(atm.failureFactor)
}

// RecordTimeout raises the timeout more aggressively than a plain failure.
func (atm *AdaptiveTimeoutManager) RecordTimeout() {
	atm.mu.Lock()
	defer atm.mu.Unlock()

	atm.timeoutCount++
	atm.scale(atm.timeoutFactor)
}

// scale must be called with mu held.
func (atm *AdaptiveTimeoutManager) scale(factor float64) {
	next := time.Duration(float64(atm.currentTimeout) * factor)
	if next < atm.minTimeout {
		next = atm.minTimeout
	}
	if next > atm.maxTimeout {
		next = atm.maxTimeout
	}
	if next != atm.currentTimeout {
		slog.Debug("adaptive timeout adjusted",
			slog.Duration("old_timeout", atm.currentTimeout),
			slog.Duration("new_timeout", next))
		atm.currentTimeout = next
	}
}

// WithTimeout creates a context with adaptive timeout
func (atm *AdaptiveTimeoutManager) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, atm.GetTimeout())
}

// Counts returns the success, failure and timeout tallies.
func (atm *AdaptiveTimeoutManager) Counts() (success, failure, timeout int64) {
	atm.mu.RLock()
	defer atm.mu.RUnlock()
	return atm.successCount, atm.failureCount, atm.timeoutCount
}

// Reset resets the adaptive timeout to base value
func (atm *AdaptiveTimeoutManager) Reset() {
	atm.mu.Lock()
	defer atm.mu.Unlock()

	atm.currentTimeout = atm.baseTimeout
	atm.successCount = 0
	atm.failureCount = 0
	atm.timeoutCount = 0
}
