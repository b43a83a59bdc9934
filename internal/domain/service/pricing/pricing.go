// Package pricing turns windowed price events into a reference price and
// gates anomalous moves behind human review.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/service/batch"
	"card_market/internal/domain/value"
	"card_market/pkg/contextx"
	"card_market/pkg/errcodes"
	"card_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const defaultWorkers = 4

type MarketItemRepository interface {
	List(ctx context.Context, filter entity.CatalogFilter) ([]entity.MarketItem, error)
	ApplyPrice(ctx context.Context, update entity.PriceUpdate) error
	UpdateLiquidity(ctx context.Context, id int64, liquidity value.Liquidity, confidence value.Confidence) error
}

type PriceEventRepository interface {
	ListWindow(ctx context.Context, window entity.EventWindow) ([]entity.PriceEvent, error)
	MarkOutliers(ctx context.Context, ids []int64, reason string) error
	ClearOutliers(ctx context.Context, ids []int64, reason string) error
}

type GradedPriceRepository interface {
	Upsert(ctx context.Context, price entity.GradedPrice) error
}

type ReviewRepository interface {
	UpsertPending(ctx context.Context, entry entity.ReviewEntry) (int64, bool, error)
}

type AggregationLogRepository interface {
	Upsert(ctx context.Context, entry entity.AggregationLogEntry) error
}

// ReviewNotifier is told about newly created gate reviews.
type ReviewNotifier interface {
	NotifyGated(ctx context.Context, entry entity.ReviewEntry, item entity.MarketItem) error
}

type Service struct {
	items    MarketItemRepository
	events   PriceEventRepository
	graded   GradedPriceRepository
	reviews  ReviewRepository
	log      AggregationLogRepository
	notifier ReviewNotifier

	policy    Policy
	workers   int
	batchSize int
	now       func() time.Time
}

func NewService(
	items MarketItemRepository,
	events PriceEventRepository,
	graded GradedPriceRepository,
	reviews ReviewRepository,
	log AggregationLogRepository,
) *Service {
	return &Service{
		items:     items,
		events:    events,
		graded:    graded,
		reviews:   reviews,
		log:       log,
		policy:    DefaultPolicy(),
		workers:   defaultWorkers,
		batchSize: batch.DefaultSize,
		now:       time.Now,
	}
}

func (s *Service) WithPolicy(p Policy) *Service {
	s.policy = p
	return s
}

func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
	return s
}

func (s *Service) WithNotifier(n ReviewNotifier) *Service {
	s.notifier = n
	return s
}

func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run aggregates every market item in the window on a bounded worker pool.
// One item's failure is recorded and the batch continues.
func (s *Service) Run(ctx context.Context, summary *entity.RunSummary) error {
	opts := summary.Options

	logger(ctx).Info("aggregation started",
		slog.String(logx.FieldCategory, opts.Category),
		slog.Int("workers", s.workers),
		slog.Bool("force", opts.Force),
	)

	err := batch.Walk(ctx, s.batchSize, opts.Limit,
		func(ctx context.Context, limit int, afterID int64) ([]entity.MarketItem, error) {
			return s.items.List(ctx, entity.CatalogFilter{Category: opts.Category, Limit: limit, AfterID: afterID})
		},
		func(it entity.MarketItem) int64 { return it.ID },
		func(ctx context.Context, items []entity.MarketItem) error {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(s.workers)

			for i := range items {
				item := items[i]
				g.Go(func() error {
					summary.Track(func(rs *entity.RunSummary) { rs.Processed++ })

					outcome, err := s.ProcessItem(gctx, item, opts.Force)
					if err != nil {
						summary.RecordError(fmt.Sprintf("market item %d", item.ID), err)
						logger(gctx).Warn("aggregation failed",
							slog.Int64(logx.FieldMarketItemID, item.ID),
							logx.Error(err),
						)
						return nil
					}

					summary.Track(func(rs *entity.RunSummary) {
						switch outcome {
						case value.OutcomeApplied:
							rs.Applied++
						case value.OutcomeGated:
							rs.Gated++
						case value.OutcomeSkipped:
							rs.Skipped++
						}
					})

					if outcome == value.OutcomeSkipped {
						summary.RecordError(fmt.Sprintf("market item %d", item.ID),
							domain.NewError(errcodes.InsufficientData, value.SkipReasonInsufficientData))
					}
					return nil
				})
			}

			return g.Wait()
		},
	)
	if err != nil {
		return fmt.Errorf("aggregate market items: %w", err)
	}

	logger(ctx).Info("aggregation finished",
		slog.Int("processed", summary.Processed),
		slog.Int("applied", summary.Applied),
		slog.Int("gated", summary.Gated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("errors", summary.Errors),
	)

	return nil
}

// ProcessItem runs one item through aggregation and the volatility gate.
func (s *Service) ProcessItem(ctx context.Context, item entity.MarketItem, force bool) (value.Outcome, error) {
	now := s.now()
	runDate := entity.RunDate(now)

	events, err := s.events.ListWindow(ctx, entity.EventWindow{
		MarketItemID: item.ID,
		Currency:     item.Currency,
		Since:        now.Add(-s.policy.Window),
	})
	if err != nil {
		return "", fmt.Errorf("list price events: %w", err)
	}

	candidate := Aggregate(events, s.policy)

	if err := s.syncOutliers(ctx, events, candidate.OutlierEventIDs); err != nil {
		return "", err
	}

	for _, gp := range candidate.Graded {
		gp.MarketItemID = item.ID
		gp.RunDate = runDate
		gp.UpdatedAt = now
		if err := s.graded.Upsert(ctx, gp); err != nil {
			return "", fmt.Errorf("upsert graded price: %w", err)
		}
	}

	previous := item.PreviousPrice()
	decision := Gate(previous, candidate.Price, candidate.Liquidity, s.policy.VolatilityThreshold, force)

	logEntry := entity.AggregationLogEntry{
		MarketItemID:  item.ID,
		RunDate:       runDate,
		PreviousPrice: item.CurrentPrice,
		NewPrice:      candidate.Price,
		SampleCount:   candidate.SampleCount,
		SourceCount:   len(candidate.Sources),
		Outcome:       decision.Outcome,
		SkipReason:    candidate.SkipReason,
		UpdatedAt:     now,
	}

	switch decision.Outcome {
	case value.OutcomeSkipped:
		if logEntry.SkipReason == "" {
			logEntry.SkipReason = value.SkipReasonInsufficientData
		}
		if err := s.items.UpdateLiquidity(ctx, item.ID, candidate.Liquidity, candidate.Confidence); err != nil {
			return "", fmt.Errorf("update liquidity: %w", err)
		}

	case value.OutcomeGated:
		if err := s.hold(ctx, item, candidate, decision); err != nil {
			return "", err
		}

	case value.OutcomeApplied:
		logEntry.WasUpdated = true
		update := Cascade(&item, *candidate.Price, candidate, now)
		update.Log = &logEntry
		if err := s.items.ApplyPrice(ctx, update); err != nil {
			return "", fmt.Errorf("apply price: %w", err)
		}
	}

	if decision.Outcome != value.OutcomeApplied {
		if err := s.log.Upsert(ctx, logEntry); err != nil {
			return "", fmt.Errorf("upsert aggregation log: %w", err)
		}
	}

	logger(ctx).Debug("market item aggregated",
		slog.Int64(logx.FieldMarketItemID, item.ID),
		slog.String(logx.FieldOutcome, string(decision.Outcome)),
		slog.Int("samples", candidate.SampleCount),
	)

	return decision.Outcome, nil
}

// syncOutliers makes the persisted MAD flags match this run's verdict.
// Events flagged by an earlier run and kept now are cleared.
func (s *Service) syncOutliers(ctx context.Context, window []entity.PriceEvent, dropped []int64) error {
	var flag, unflag []int64
	for _, e := range window {
		isDropped := slices.Contains(dropped, e.ID)
		wasFlagged := e.IsOutlier && e.OutlierReason == value.OutlierReasonMAD
		switch {
		case isDropped && !wasFlagged:
			flag = append(flag, e.ID)
		case !isDropped && wasFlagged:
			unflag = append(unflag, e.ID)
		}
	}

	if len(flag) > 0 {
		if err := s.events.MarkOutliers(ctx, flag, value.OutlierReasonMAD); err != nil {
			return fmt.Errorf("mark outliers: %w", err)
		}
	}
	if len(unflag) > 0 {
		if err := s.events.ClearOutliers(ctx, unflag, value.OutlierReasonMAD); err != nil {
			return fmt.Errorf("clear outliers: %w", err)
		}
	}
	return nil
}

func (s *Service) hold(ctx context.Context, item entity.MarketItem, c Candidate, d GateDecision) error {
	if err := s.items.UpdateLiquidity(ctx, item.ID, c.Liquidity, c.Confidence); err != nil {
		return fmt.Errorf("update liquidity: %w", err)
	}

	itemID := item.ID
	entry := entity.ReviewEntry{
		Kind:          value.ReviewKindVolatilityGate,
		MarketItemID:  &itemID,
		Reason:        fmt.Sprintf("change exceeds %.0f%% on %s liquidity", s.policy.VolatilityThreshold, c.Liquidity),
		PreviousPrice: item.CurrentPrice,
		ProposedPrice: c.Price,
		ChangePercent: d.ChangePercent,
		Status:        value.ReviewStatusPending,
	}

	id, created, err := s.reviews.UpsertPending(ctx, entry)
	if err != nil {
		return fmt.Errorf("queue volatility review: %w", err)
	}

	if created && s.notifier != nil {
		entry.ID = id
		if err := s.notifier.NotifyGated(ctx, entry, item); err != nil {
			logger(ctx).Warn("review alert failed",
				slog.Int64(logx.FieldMarketItemID, item.ID),
				logx.Error(err),
			)
		}
	}

	return nil
}
