package jobs

import (
	"context"
	"time"

	"rentdesk-backend/internal/logger"
)

// PurgeIdempotencyKeys deletes idempotency keys older than the retention window.
// Retries that arrive after the purge are treated as new return calls.
func (jr *JobRunner) PurgeIdempotencyKeys() error {
	return jr.runWithRecovery(JobPurgeIdempotencyKeys, func(ctx context.Context) error {
		retention := time.Duration(jr.config.Idempotency.RetentionHours) * time.Hour
		cutoff := jr.now().Add(-retention)

		deleted, err := jr.idempotency.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return err
		}

		logger.Info("Purged idempotency keys", "deleted", deleted, "cutoff", cutoff)
		return nil
	})
}
