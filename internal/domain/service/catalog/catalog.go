// Package catalog keeps the normalized keys of catalog cards and market items current.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/service/batch"
	"card_market/internal/domain/service/cardkey"
	"card_market/pkg/contextx"
	"card_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type CatalogCardRepository interface {
	List(ctx context.Context, filter entity.CatalogFilter) ([]entity.CatalogCard, error)
	UpdateNormalizedKey(ctx context.Context, id int64, key string) error
}

type MarketItemRepository interface {
	List(ctx context.Context, filter entity.CatalogFilter) ([]entity.MarketItem, error)
	UpdateNormalizedKey(ctx context.Context, id int64, key string) error
}

type KeyService struct {
	cards     CatalogCardRepository
	items     MarketItemRepository
	batchSize int
}

func NewKeyService(cards CatalogCardRepository, items MarketItemRepository) *KeyService {
	return &KeyService{
		cards:     cards,
		items:     items,
		batchSize: batch.DefaultSize,
	}
}

func (s *KeyService) WithBatchSize(n int) *KeyService {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Refresh recomputes normalized keys in the run window. Rows that cannot
// produce a key are recorded and skipped. Unchanged keys are not rewritten.
func (s *KeyService) Refresh(ctx context.Context, summary *entity.RunSummary) error {
	opts := summary.Options

	err := batch.Walk(ctx, s.batchSize, opts.Limit,
		func(ctx context.Context, limit int, afterID int64) ([]entity.CatalogCard, error) {
			return s.cards.List(ctx, entity.CatalogFilter{Category: opts.Category, Limit: limit, AfterID: afterID})
		},
		func(c entity.CatalogCard) int64 { return c.ID },
		func(ctx context.Context, cards []entity.CatalogCard) error {
			for _, card := range cards {
				s.refreshOne(ctx, summary, fmt.Sprintf("catalog card %d", card.ID), card.NormalizedKey,
					cardkey.Parts{
						Game:     card.Game,
						SetCode:  card.SetCode,
						Number:   card.CardNumber,
						Variant:  card.Variant,
						Finish:   card.Finish,
						Language: card.Language,
					},
					func(key string) error { return s.cards.UpdateNormalizedKey(ctx, card.ID, key) },
				)
			}
			return nil
		},
	)
	if err != nil {
		return fmt.Errorf("refresh catalog card keys: %w", err)
	}

	err = batch.Walk(ctx, s.batchSize, opts.Limit,
		func(ctx context.Context, limit int, afterID int64) ([]entity.MarketItem, error) {
			return s.items.List(ctx, entity.CatalogFilter{Category: opts.Category, Limit: limit, AfterID: afterID})
		},
		func(it entity.MarketItem) int64 { return it.ID },
		func(ctx context.Context, items []entity.MarketItem) error {
			for _, item := range items {
				s.refreshOne(ctx, summary, fmt.Sprintf("market item %d", item.ID), item.NormalizedKey,
					cardkey.Parts{
						Game:     item.Category,
						SetCode:  item.SetCode,
						Number:   item.CardNumber,
						Variant:  item.Variant,
						Finish:   item.Finish,
						Language: item.Language,
					},
					func(key string) error { return s.items.UpdateNormalizedKey(ctx, item.ID, key) },
				)
			}
			return nil
		},
	)
	if err != nil {
		return fmt.Errorf("refresh market item keys: %w", err)
	}

	logger(ctx).Info("normalized keys refreshed",
		slog.String(logx.FieldCategory, opts.Category),
		slog.Int("processed", summary.Processed),
		slog.Int("updated", summary.Updated),
		slog.Int("errors", summary.Errors),
	)

	return nil
}

func (s *KeyService) refreshOne(
	ctx context.Context,
	summary *entity.RunSummary,
	subject, current string,
	parts cardkey.Parts,
	update func(key string) error,
) {
	summary.Track(func(rs *entity.RunSummary) { rs.Processed++ })

	key, err := cardkey.Build(parts)
	if err != nil {
		summary.RecordError(subject, err)
		return
	}

	if key == current {
		return
	}

	if err := update(key); err != nil {
		summary.RecordError(subject, err)
		return
	}

	summary.Track(func(rs *entity.RunSummary) { rs.Updated++ })
	logger(ctx).Debug("normalized key updated", slog.String("subject", subject), slog.String("key", key))
}
