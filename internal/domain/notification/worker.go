package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer hands a dispatch to the background worker instead of running it
// in the caller's request.
type Enqueuer interface {
	EnqueueDispatch(ctx context.Context, p *DispatchTaskPayload) error
}

// Worker processes dispatch tasks from the queue.
type Worker struct {
	dispatcher *Dispatcher
}

// NewWorker creates a new notification worker.
func NewWorker(dispatcher *Dispatcher) *Worker {
	return &Worker{dispatcher: dispatcher}
}

// ProcessTask runs a queued dispatch. Channel failures are already captured
// per recipient, so the only error returned is a misconfigured dispatcher,
// and it is never retried.
func (w *Worker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	start := time.Now()

	p, err := ParseDispatchTaskPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	if err := p.Validate(); err != nil {
		slog.Error("dropping invalid dispatch task", "error", err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	results, err := w.dispatcher.NotifyMany(ctx, p.UserIDs, p.Type, p.Payload, p.Options)
	if err != nil {
		return fmt.Errorf("dispatching notification: %w: %w", err, asynq.SkipRetry)
	}

	attrs := []any{
		"type", p.Type,
		"recipients", len(results),
		"duration", time.Since(start),
	}
	if !p.EnqueuedAt.IsZero() {
		attrs = append(attrs, "queue_latency", start.Sub(p.EnqueuedAt))
	}
	slog.Info("dispatch task processed", attrs...)

	return nil
}
