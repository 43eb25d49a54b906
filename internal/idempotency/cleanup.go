package idempotency

import (
	"log/slog"
	"time"
)

// DefaultExpiry is how long a cached checkout response stays
// replayable. Stripe checkout sessions expire after 24 hours, so a
// retry beyond that window should create a fresh session anyway.
const DefaultExpiry = 24 * time.Hour

// CleanupExpired removes records older than the expiry. Returns the
// number removed.
func CleanupExpired(repo Repository, expiry time.Duration) (int64, error) {
	deleted, err := repo.DeleteOlderThan(expiry)
	if err != nil {
		slog.Error("failed to clean up idempotency records", "error", err)
		return 0, err
	}
	if deleted > 0 {
		slog.Info("cleaned up idempotency records", "deleted", deleted, "older_than", expiry)
	}
	return deleted, nil
}

// RunPeriodicCleanup sweeps expired records at the given interval
// until stopChan closes. It blocks, so run it in a goroutine:
//
//	stop := make(chan struct{})
//	go idempotency.RunPeriodicCleanup(repo, time.Hour, idempotency.DefaultExpiry, stop)
func RunPeriodicCleanup(repo Repository, interval, expiry time.Duration, stopChan <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := CleanupExpired(repo, expiry); err != nil {
		slog.Error("initial idempotency cleanup failed", "error", err)
	}

	for {
		select {
		case <-ticker.C:
			if _, err := CleanupExpired(repo, expiry); err != nil {
				slog.Error("periodic idempotency cleanup failed", "error", err)
			}
		case <-stopChan:
			slog.Info("stopping idempotency cleanup")
			return
		}
	}
}
