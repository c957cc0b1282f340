package store

import (
	"context"
	"strings"
	"time"
)

// isSQLiteConflictError checks for SQLITE_BUSY / "database is locked"
// errors. Both are transient concurrency errors that warrant a retry.
func isSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// writeRetryAttempts bounds retries for writes that hit a lock conflict
// despite the busy_timeout pragma.
const writeRetryAttempts = 3

// execWithRetry runs fn, retrying lock conflicts with a short linear delay.
func execWithRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < writeRetryAttempts; attempt++ {
		err = fn()
		if err == nil || !isSQLiteConflictError(err) {
			return err
		}
		select {
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
