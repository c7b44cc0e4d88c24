package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/siteledger/siteledger/internal/dispatch"
)

// Notifier enqueues dispatch events onto the background queue. It implements
// dispatch.Notifier; enqueue failures are logged and swallowed so a queue
// outage never fails an already-committed dispatch.
type Notifier struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewNotifier wraps an Asynq client.
func NewNotifier(client *asynq.Client, logger *slog.Logger) *Notifier {
	return &Notifier{client: client, logger: logger}
}

// DispatchCommitted enqueues a TaskDispatchCommitted task.
func (n *Notifier) DispatchCommitted(ctx context.Context, event dispatch.CommittedEvent) error {
	if n == nil || n.client == nil {
		return nil
	}
	task, err := NewDispatchCommittedTask(DispatchCommittedPayload{
		Refs:            event.Refs,
		SequenceNumbers: event.SequenceNumbers,
		ProjectID:       event.ProjectID,
		ActorID:         event.ActorID,
	})
	if err != nil {
		return err
	}
	if _, err := n.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		n.logger.Warn("enqueue dispatch committed", slog.Any("error", err))
	}
	return nil
}
