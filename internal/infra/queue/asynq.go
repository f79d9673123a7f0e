package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"notifyhub/internal/config"
	"notifyhub/internal/domain/notification"

	"github.com/hibiken/asynq"
)

const (
	// QueueName is the asynq queue dispatch tasks are placed on.
	QueueName = "notifications"

	// taskTimeout bounds one queued NotifyMany run.
	taskTimeout = 5 * time.Minute
)

var _ notification.Enqueuer = (*Enqueuer)(nil)

func connOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
}

// NewClient connects a producer to the Redis backing the queue.
func NewClient(cfg config.RedisConfig) *asynq.Client {
	return asynq.NewClient(connOpt(cfg))
}

// NewServer builds the consumer side. Dispatch tasks are weighted well above
// anything else that lands on the default queue.
func NewServer(cfg config.RedisConfig, concurrency int) *asynq.Server {
	return asynq.NewServer(connOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueName: 10,
			"default": 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(logTaskFailure),
	})
}

func logTaskFailure(_ context.Context, task *asynq.Task, err error) {
	slog.Error("dispatch task failed", "task_type", task.Type(), "error", err)
}

// Enqueuer submits single-attempt dispatch tasks. A failed dispatch is
// logged by the worker and never replayed, since replays would duplicate
// deliveries that already succeeded.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer wraps an asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueDispatch encodes p and places it on QueueName.
func (e *Enqueuer) EnqueueDispatch(ctx context.Context, p *notification.DispatchTaskPayload) error {
	task, err := notification.NewDispatchTask(p)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.MaxRetry(0),
		asynq.Timeout(taskTimeout),
	)
	if err != nil {
		return fmt.Errorf("enqueuing task: %w", err)
	}

	slog.Debug("dispatch task enqueued", "task_id", info.ID, "recipients", len(p.UserIDs), "type", p.Type)
	return nil
}
