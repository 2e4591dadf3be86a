package jobs

import (
	"log/slog"
	"time"

	"hsrelay/internal/deliveries"
)

const cleanupBatchSize = 1000

// CleanupJob removes journaled deliveries past the retention period
type CleanupJob struct {
	store         *deliveries.Store
	logger        *slog.Logger
	retentionDays int
	now           func() time.Time
}

// NewCleanupJob creates the retention job. A non-positive retentionDays keeps
// everything.
func NewCleanupJob(store *deliveries.Store, logger *slog.Logger, retentionDays int) *CleanupJob {
	return &CleanupJob{
		store:         store,
		logger:        logger,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

func (j *CleanupJob) Name() string { return "delivery_cleanup" }

// Run deletes deliveries older than the retention period.
func (j *CleanupJob) Run() error {
	if j.retentionDays <= 0 {
		j.logger.Debug("Delivery retention disabled, skipping cleanup")
		return nil
	}

	cutoffDate := j.now().AddDate(0, 0, -j.retentionDays)
	j.logger.Info("Starting cleanup of old deliveries",
		slog.Int("retention_days", j.retentionDays),
		slog.Time("cutoff_date", cutoffDate))

	deleted, err := j.store.Prune(cutoffDate, cleanupBatchSize)
	if err != nil {
		j.logger.Error("Failed to delete old deliveries",
			slog.Any("error", err),
			slog.Int64("deleted_so_far", deleted))
		return err
	}

	j.logger.Info("Cleaned up old deliveries",
		slog.Int64("deleted_count", deleted),
		slog.Int("retention_days", j.retentionDays))
	return nil
}
