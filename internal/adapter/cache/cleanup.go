package cache

import (
	"context"
	"log/slog"
	"time"
)

// Purger drops expired entries from a backend.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// CleanupService periodically removes expired pages.
type CleanupService struct {
	Purger  Purger
	Backend string
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(p Purger, backend string) *CleanupService {
	return &CleanupService{Purger: p, Backend: backend}
}

// CleanupExpired runs one purge pass.
func (s *CleanupService) CleanupExpired(ctx context.Context) error {
	n, err := s.Purger.Purge(ctx)
	if err != nil {
		return err
	}
	slog.Info("page cache cleanup completed",
		slog.String("backend", s.Backend),
		slog.Int64("deleted", n),
	)
	return nil
}

// RunPeriodic starts a periodic cleanup job
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.CleanupExpired(ctx); err != nil {
		slog.Error("initial page cache cleanup failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("page cache cleanup stopping")
			return
		case <-ticker.C:
			if err := s.CleanupExpired(ctx); err != nil {
				slog.Error("periodic page cache cleanup failed", slog.Any("error", err))
			}
		}
	}
}
