// Package pipeline dispatches stage runs and records their summaries.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/contextx"
	"card_market/pkg/errcodes"
	"card_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// StageFunc runs one stage over the window described by summary.Options.
type StageFunc func(ctx context.Context, summary *entity.RunSummary) error

type SummaryStore interface {
	Save(ctx context.Context, summary *entity.RunSummary) error
}

type Runner struct {
	stages map[value.Stage]StageFunc
	store  SummaryStore
	now    func() time.Time
}

func NewRunner(store SummaryStore) *Runner {
	return &Runner{
		stages: make(map[value.Stage]StageFunc),
		store:  store,
		now:    time.Now,
	}
}

func (r *Runner) WithStage(stage value.Stage, fn StageFunc) *Runner {
	r.stages[stage] = fn
	return r
}

func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run executes stage once. The summary is returned and stored even when the
// stage itself fails part way.
func (r *Runner) Run(ctx context.Context, stage value.Stage, opts entity.RunOptions) (*entity.RunSummary, error) {
	fn, ok := r.stages[stage]
	if !ok {
		return nil, domain.NewError(errcodes.InvalidStage, fmt.Sprintf("stage %q is not registered", stage))
	}

	runID, err := contextx.RunIDFromContext(ctx)
	if err != nil {
		runID = contextx.RunID(xid.New().String())
		ctx = contextx.WithRunID(ctx, runID)
	}

	ctx = contextx.WithLogger(ctx, logger(ctx).With(
		slog.String(logx.FieldRunID, runID.String()),
		slog.String(logx.FieldStage, stage.String()),
	))

	summary := entity.NewRunSummary(runID.String(), stage, opts, r.now())

	logger(ctx).Info("stage run started",
		slog.String(logx.FieldCategory, opts.Category),
		slog.Int("limit", opts.Limit),
		slog.Bool("force", opts.Force),
	)

	runErr := fn(ctx, summary)
	summary.Finish(r.now())

	if r.store != nil {
		if err := r.store.Save(ctx, summary); err != nil {
			logger(ctx).Warn("failed to store run summary", logx.Error(err))
		}
	}

	if runErr != nil {
		logger(ctx).Error("stage run failed", logx.Error(runErr))
		return summary, fmt.Errorf("run %s: %w", stage, runErr)
	}

	logger(ctx).Info("stage run finished",
		slog.Int("processed", summary.Processed),
		slog.Int("errors", summary.Errors),
		slog.Duration("took", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	return summary, nil
}

// RunAll executes every registered stage in pipeline order and stops at the
// first stage that fails outright.
func (r *Runner) RunAll(ctx context.Context, opts entity.RunOptions) ([]*entity.RunSummary, error) {
	var summaries []*entity.RunSummary

	for _, stage := range value.Stages {
		if _, ok := r.stages[stage]; !ok {
			continue
		}

		summary, err := r.Run(ctx, stage, opts)
		if summary != nil {
			summaries = append(summaries, summary)
		}
		if err != nil {
			return summaries, err
		}
	}

	return summaries, nil
}
