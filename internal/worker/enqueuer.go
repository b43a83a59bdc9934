package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/errcodes"
	"card_market/pkg/logx"
)

const defaultMaxRetry = 2

type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Enqueuer struct {
	client  TaskClient
	timeout time.Duration
}

func NewEnqueuer(client TaskClient, timeout time.Duration) *Enqueuer {
	return &Enqueuer{client: client, timeout: timeout}
}

// TaskOptions are shared by enqueued and scheduled stage tasks. Unique keeps
// an identical run from being queued twice while one is pending.
func TaskOptions(timeout time.Duration) []asynq.Option {
	return []asynq.Option{
		asynq.Queue(QueueName),
		asynq.MaxRetry(defaultMaxRetry),
		asynq.Timeout(timeout),
		asynq.Unique(timeout),
	}
}

// Enqueue queues one stage run and returns its task id, which becomes the run id.
func (e *Enqueuer) Enqueue(ctx context.Context, stage value.Stage, opts entity.RunOptions) (string, error) {
	task, err := NewTask(stage, opts, TaskOptions(e.timeout)...)
	if err != nil {
		return "", fmt.Errorf("NewTask: %w", err)
	}

	info, err := e.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return "", domain.NewError(errcodes.RunInProgress, fmt.Sprintf("an identical %s run is already queued", stage))
	}
	if err != nil {
		return "", fmt.Errorf("client.EnqueueContext: %w", err)
	}

	logger(ctx).Info("stage task enqueued",
		slog.String(logx.FieldStage, stage.String()),
		slog.String(logx.FieldRunID, info.ID),
	)
	return info.ID, nil
}
