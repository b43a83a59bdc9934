package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/application/modules"
	"card_market/pkg/contextx"
	"card_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type Runner interface {
	Run(ctx context.Context, stage value.Stage, opts entity.RunOptions) (*entity.RunSummary, error)
}

type Handler struct {
	runner Runner
}

func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

// Handlers registers one asynq handler per stage.
func (h *Handler) Handlers() []modules.AsynqHandler {
	handlers := make([]modules.AsynqHandler, 0, len(value.Stages))
	for _, stage := range value.Stages {
		handlers = append(handlers, modules.AsynqHandler{
			Pattern: TaskType(stage),
			Handle:  h.Handle,
		})
	}
	return handlers
}

// Handle runs the stage named by the task type. A malformed payload is not retried.
func (h *Handler) Handle(ctx context.Context, task *asynq.Task) error {
	ctx = contextx.WithLogger(ctx, logger(ctx).With(slog.String(logx.FieldTaskType, task.Type())))

	stage, err := StageFromTaskType(task.Type())
	if err != nil {
		runsTotal.WithLabelValues("unknown", "rejected").Inc()
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	opts, err := parsePayload(task.Payload())
	if err != nil {
		runsTotal.WithLabelValues(stage.String(), "rejected").Inc()
		return fmt.Errorf("parsePayload: %w: %w", err, asynq.SkipRetry)
	}

	if taskID, ok := asynq.GetTaskID(ctx); ok {
		ctx = contextx.WithRunID(ctx, contextx.RunID(taskID))
	}

	summary, err := h.runner.Run(ctx, stage, opts)
	if summary != nil {
		observeSummary(summary)
	}
	if err != nil {
		runsTotal.WithLabelValues(stage.String(), "failed").Inc()
		logger(ctx).Error("stage task failed", logx.Error(err))
		return fmt.Errorf("runner.Run: %w", err)
	}

	runsTotal.WithLabelValues(stage.String(), "succeeded").Inc()
	return nil
}
