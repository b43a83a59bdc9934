package handler

import (
	"context"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type RunEnqueuer interface {
	Enqueue(ctx context.Context, stage value.Stage, opts entity.RunOptions) (string, error)
}

type SummaryReader interface {
	Latest(ctx context.Context, stage value.Stage) (*entity.RunSummary, error)
}

type ReviewLister interface {
	List(ctx context.Context, filter entity.ReviewFilter) ([]entity.ReviewEntry, error)
}

type Handler struct {
	runs      RunEnqueuer
	summaries SummaryReader
	reviews   ReviewLister
}

func New(runs RunEnqueuer, summaries SummaryReader, reviews ReviewLister) *Handler {
	return &Handler{
		runs:      runs,
		summaries: summaries,
		reviews:   reviews,
	}
}
