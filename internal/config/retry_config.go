package config

import (
	"time"
)

// FetchRetryConfig holds the backoff policy for outbound page fetches.
type FetchRetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the first try
	MaxRetries uint64
	// InitialInterval is the delay before the first retry
	InitialInterval time.Duration
	// MaxInterval caps the delay between retries
	MaxInterval time.Duration
	// MaxElapsedTime bounds the whole retry loop
	MaxElapsedTime time.Duration
	// Multiplier is the exponential backoff multiplier
	Multiplier float64
}

// GetFetchRetryConfig returns backoff configuration appropriate for the current environment.
// In test environments, uses much shorter timeouts for faster test execution.
func (c Config) GetFetchRetryConfig() FetchRetryConfig {
	if c.IsTest() {
		return FetchRetryConfig{
			MaxRetries:      c.FetchMaxRetries,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			MaxElapsedTime:  2 * time.Second,
			Multiplier:      2.0,
		}
	}
	return FetchRetryConfig{
		MaxRetries:      c.FetchMaxRetries,
		InitialInterval: c.FetchBackoffInitial,
		MaxInterval:     c.FetchBackoffMax,
		MaxElapsedTime:  c.FetchBackoffMaxElapsed,
		Multiplier:      c.FetchBackoffMultiplier,
	}
}
