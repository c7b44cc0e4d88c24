package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/siteledger/siteledger/internal/jobs"
	"github.com/siteledger/siteledger/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDispatchCommitted is emitted after a commit batch persists.
	TaskDispatchCommitted = "dispatch:committed"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// DispatchCommittedPayload describes a persisted commit batch.
type DispatchCommittedPayload struct {
	Refs            []string `json:"refs"`
	SequenceNumbers []string `json:"sequence_numbers"`
	ProjectID       int64    `json:"project_id"`
	ActorID         int64    `json:"actor_id"`
}

// NewDispatchCommittedTask constructs an Asynq task.
func NewDispatchCommittedTask(payload DispatchCommittedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDispatchCommitted, data), nil
}

// DispatchCommittedHandler processes TaskDispatchCommitted tasks. It writes a
// trail entry per batch; notification channels hang off this handler.
type DispatchCommittedHandler struct {
	logger  *slog.Logger
	audit   *shared.AuditLogger
	metrics *jobmetrics.Metrics
}

// NewDispatchCommittedHandler builds the handler. audit and metrics may be nil.
func NewDispatchCommittedHandler(logger *slog.Logger, audit *shared.AuditLogger, metrics *jobmetrics.Metrics) *DispatchCommittedHandler {
	return &DispatchCommittedHandler{logger: logger, audit: audit, metrics: metrics}
}

// ProcessTask implements asynq.Handler.
func (h *DispatchCommittedHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskDispatchCommitted)
	var payload DispatchCommittedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	h.logger.Info("dispatch batch committed",
		slog.Int64("project_id", payload.ProjectID),
		slog.Any("numbers", payload.SequenceNumbers),
	)
	if h.audit != nil {
		return tracker.End(h.audit.Record(ctx, shared.AuditLog{
			ActorID:  payload.ActorID,
			Action:   "dispatch:committed:notified",
			Entity:   "challan_batch",
			EntityID: firstOr(payload.SequenceNumbers, "unknown"),
			Meta: map[string]any{
				"project_id": payload.ProjectID,
				"refs":       payload.Refs,
			},
		}))
	}
	return tracker.End(nil)
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}
