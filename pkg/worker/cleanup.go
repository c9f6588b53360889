package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/repository"
)

// OutboxCleanupWorker deletes processed events older than the retention window.
type OutboxCleanupWorker struct {
	repo      repository.OutboxStore
	retention time.Duration
	interval  time.Duration
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewOutboxCleanupWorker(repo repository.OutboxStore, retention, interval time.Duration, logger *logger.Logger, metrics *metrics.Metrics) *OutboxCleanupWorker {
	return &OutboxCleanupWorker{
		repo:      repo,
		retention: retention,
		interval:  interval,
		logger:    logger.With("component", "outbox_cleanup"),
		metrics:   metrics,
	}
}

func (w *OutboxCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Purge(ctx, time.Now())
		}
	}
}

func (w *OutboxCleanupWorker) Purge(ctx context.Context, now time.Time) int64 {
	deleted, err := w.repo.DeleteProcessedBefore(ctx, now.Add(-w.retention))
	if err != nil {
		w.logger.Error(err, "Failed to purge processed events")
		return 0
	}
	if deleted > 0 {
		w.metrics.OutboxEventsPurged.Add(float64(deleted))
		w.logger.Debug("Purged processed events", "count", deleted)
	}
	return deleted
}
