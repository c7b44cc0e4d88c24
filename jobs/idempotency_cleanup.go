package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/siteledger/siteledger/internal/jobs"
	"github.com/siteledger/siteledger/internal/shared"
)

// NewIdempotencyCleanupTask constructs the cron task. It carries no payload.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// IdempotencyCleanupHandler prunes idempotency keys past their retention.
type IdempotencyCleanupHandler struct {
	store     *shared.IdempotencyStore
	retention time.Duration
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
}

// NewIdempotencyCleanupHandler builds the handler. metrics may be nil.
func NewIdempotencyCleanupHandler(store *shared.IdempotencyStore, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupHandler {
	if retention <= 0 {
		retention = 48 * time.Hour
	}
	return &IdempotencyCleanupHandler{store: store, retention: retention, logger: logger, metrics: metrics}
}

// ProcessTask implements asynq.Handler.
func (h *IdempotencyCleanupHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	tracker := h.metrics.Track(TaskIdempotencyCleanup)
	if err := h.store.Cleanup(ctx, h.retention); err != nil {
		h.logger.Warn("idempotency cleanup", slog.Any("error", err))
		return tracker.End(err)
	}
	return tracker.End(nil)
}
