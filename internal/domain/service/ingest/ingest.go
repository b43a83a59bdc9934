// Package ingest pulls listings from every registered source and appends them
// as price events. It never touches prices.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/service/batch"
	"card_market/internal/domain/value"
	"card_market/pkg/contextx"
	"card_market/pkg/errcodes"
	"card_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	defaultSeenTTL  = 6 * time.Hour
	defaultLookback = 30 * 24 * time.Hour
)

type Adapter interface {
	Source() value.Source
	Fetch(ctx context.Context, query entity.SourceQuery) ([]entity.Listing, error)
}

type MarketItemRepository interface {
	List(ctx context.Context, filter entity.CatalogFilter) ([]entity.MarketItem, error)
	FindByNormalizedKey(ctx context.Context, key string) ([]entity.MarketItem, error)
}

type PriceEventRepository interface {
	Insert(ctx context.Context, event entity.PriceEvent) (bool, error)
}

type UnmatchedRepository interface {
	Upsert(ctx context.Context, item entity.UnmatchedItem) error
}

type Service struct {
	items     MarketItemRepository
	events    PriceEventRepository
	unmatched UnmatchedRepository
	adapters  []Adapter

	seen      *cache.Cache
	lookback  time.Duration
	batchSize int
	now       func() time.Time
}

func NewService(
	items MarketItemRepository,
	events PriceEventRepository,
	unmatched UnmatchedRepository,
	adapters ...Adapter,
) *Service {
	return &Service{
		items:     items,
		events:    events,
		unmatched: unmatched,
		adapters:  adapters,
		seen:      cache.New(defaultSeenTTL, 2*defaultSeenTTL),
		lookback:  defaultLookback,
		batchSize: batch.DefaultSize,
		now:       time.Now,
	}
}

// WithSeenTTL sets how long a listing id is remembered within this process.
func (s *Service) WithSeenTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.seen = cache.New(ttl, 2*ttl)
	}
	return s
}

func (s *Service) WithLookback(d time.Duration) *Service {
	if d > 0 {
		s.lookback = d
	}
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

// Run fetches listings for every market item in the window from every adapter.
// A failing source is recorded for that item and the run continues.
func (s *Service) Run(ctx context.Context, summary *entity.RunSummary) error {
	opts := summary.Options

	if len(s.adapters) == 0 {
		logger(ctx).Warn("no source adapters registered")
		return nil
	}

	err := batch.Walk(ctx, s.batchSize, opts.Limit,
		func(ctx context.Context, limit int, afterID int64) ([]entity.MarketItem, error) {
			return s.items.List(ctx, entity.CatalogFilter{Category: opts.Category, Limit: limit, AfterID: afterID})
		},
		func(it entity.MarketItem) int64 { return it.ID },
		func(ctx context.Context, items []entity.MarketItem) error {
			for i := range items {
				summary.Track(func(rs *entity.RunSummary) { rs.Processed++ })

				for _, adapter := range s.adapters {
					if err := ctx.Err(); err != nil {
						return err
					}
					s.ingestItem(ctx, summary, &items[i], adapter)
				}
			}
			return nil
		},
	)
	if err != nil {
		return fmt.Errorf("ingest market items: %w", err)
	}

	logger(ctx).Info("ingestion finished",
		slog.String(logx.FieldCategory, opts.Category),
		slog.Int("processed", summary.Processed),
		slog.Int("inserted", summary.Inserted),
		slog.Int("duplicates", summary.Duplicates),
		slog.Int("excluded", summary.Excluded),
		slog.Int("unmatched", summary.Unmatched),
		slog.Int("errors", summary.Errors),
	)

	return nil
}

func (s *Service) ingestItem(ctx context.Context, summary *entity.RunSummary, item *entity.MarketItem, adapter Adapter) {
	source := adapter.Source()
	now := s.now()

	listings, err := adapter.Fetch(ctx, entity.QueryFor(item, now.Add(-s.lookback)))
	if err != nil {
		if !domain.IsAppError(err) {
			err = domain.WrapError(err, errcodes.SourceError, "fetch "+source.String())
		}
		summary.RecordError(fmt.Sprintf("market item %d via %s", item.ID, source), err)
		logger(ctx).Warn("source fetch failed",
			slog.Int64(logx.FieldMarketItemID, item.ID),
			slog.String(logx.FieldSource, source.String()),
			logx.Error(err),
		)
		return
	}

	for _, listing := range listings {
		if listing.Source == "" {
			listing.Source = source
		}
		if err := s.ingestListing(ctx, summary, listing, now); err != nil {
			summary.RecordError(fmt.Sprintf("%s listing %s", listing.Source, listing.ExternalID), err)
		}
	}
}

func (s *Service) ingestListing(ctx context.Context, summary *entity.RunSummary, listing entity.Listing, now time.Time) error {
	seenKey := listing.Source.String() + ":" + listing.ExternalID
	if err := s.seen.Add(seenKey, struct{}{}, cache.DefaultExpiration); err != nil {
		summary.Track(func(rs *entity.RunSummary) { rs.Duplicates++ })
		return nil
	}

	itemID, reason, err := s.resolve(ctx, listing.CanonicalKey)
	if err != nil {
		s.seen.Delete(seenKey)
		return err
	}

	if reason != "" {
		if err := s.unmatched.Upsert(ctx, entity.UnmatchedItem{
			Source:       listing.Source,
			ExternalID:   listing.ExternalID,
			Title:        listing.Title,
			CanonicalKey: listing.CanonicalKey,
			Reason:       reason,
			Amount:       listing.Amount,
			Currency:     listing.Currency,
			FirstSeenAt:  now,
			LastSeenAt:   now,
			SeenCount:    1,
		}); err != nil {
			s.seen.Delete(seenKey)
			return fmt.Errorf("upsert unmatched: %w", err)
		}
		summary.Track(func(rs *entity.RunSummary) { rs.Unmatched++ })
		return nil
	}

	inserted, err := s.events.Insert(ctx, listing.ToEvent(itemID, now))
	if err != nil {
		s.seen.Delete(seenKey)
		return fmt.Errorf("insert price event: %w", err)
	}

	summary.Track(func(rs *entity.RunSummary) {
		switch {
		case !inserted:
			rs.Duplicates++
		case listing.Excluded:
			rs.Inserted++
			rs.Excluded++
		default:
			rs.Inserted++
		}
	})

	return nil
}

// resolve maps a listing key to exactly one market item.
func (s *Service) resolve(ctx context.Context, key string) (int64, value.UnmatchedReason, error) {
	if key == "" {
		return 0, value.UnmatchedNoKey, nil
	}

	items, err := s.items.FindByNormalizedKey(ctx, key)
	if err != nil {
		return 0, "", fmt.Errorf("find market item by key: %w", err)
	}

	switch len(items) {
	case 0:
		return 0, value.UnmatchedNoMarketItem, nil
	case 1:
		return items[0].ID, "", nil
	default:
		return 0, value.UnmatchedAmbiguousKey, nil
	}
}
