// Package matching links catalog cards to market items through a two-tier
// exact ladder. Ties are never guessed; they go to human review.
package matching

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/service/batch"
	"card_market/internal/domain/service/cardkey"
	"card_market/internal/domain/value"
	"card_market/pkg/contextx"
	"card_market/pkg/errcodes"
	"card_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type CatalogCardRepository interface {
	List(ctx context.Context, filter entity.CatalogFilter) ([]entity.CatalogCard, error)
}

type MarketItemRepository interface {
	List(ctx context.Context, filter entity.CatalogFilter) ([]entity.MarketItem, error)
}

type CardMapRepository interface {
	Upsert(ctx context.Context, m entity.CardMap) error
}

type ReviewRepository interface {
	UpsertPending(ctx context.Context, entry entity.ReviewEntry) (int64, bool, error)
}

type Service struct {
	cards     CatalogCardRepository
	items     MarketItemRepository
	maps      CardMapRepository
	reviews   ReviewRepository
	batchSize int
	now       func() time.Time
}

func NewService(
	cards CatalogCardRepository,
	items MarketItemRepository,
	maps CardMapRepository,
	reviews ReviewRepository,
) *Service {
	return &Service{
		cards:     cards,
		items:     items,
		maps:      maps,
		reviews:   reviews,
		batchSize: batch.DefaultSize,
		now:       time.Now,
	}
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

// Decision is the outcome of matching one catalog card.
type Decision struct {
	Method     value.MatchMethod
	Winner     *entity.MarketItem
	Candidates []entity.ReviewCandidate
}

func (d Decision) Ambiguous() bool {
	return d.Winner == nil && len(d.Candidates) > 0
}

// Run matches every catalog card in the window against the market item pool.
func (s *Service) Run(ctx context.Context, summary *entity.RunSummary) error {
	opts := summary.Options

	items, err := s.items.List(ctx, entity.CatalogFilter{Category: opts.Category})
	if err != nil {
		return fmt.Errorf("load market item pool: %w", err)
	}

	pool := NewPool(items)

	logger(ctx).Info("matching started",
		slog.String(logx.FieldCategory, opts.Category),
		slog.Int("pool_size", len(items)),
	)

	err = batch.Walk(ctx, s.batchSize, opts.Limit,
		func(ctx context.Context, limit int, afterID int64) ([]entity.CatalogCard, error) {
			return s.cards.List(ctx, entity.CatalogFilter{Category: opts.Category, Limit: limit, AfterID: afterID})
		},
		func(c entity.CatalogCard) int64 { return c.ID },
		func(ctx context.Context, cards []entity.CatalogCard) error {
			for i := range cards {
				if err := ctx.Err(); err != nil {
					return err
				}
				s.matchCard(ctx, pool, &cards[i], summary)
			}
			return nil
		},
	)
	if err != nil {
		return fmt.Errorf("match catalog cards: %w", err)
	}

	logger(ctx).Info("matching finished",
		slog.Int("processed", summary.Processed),
		slog.Int("mapped", summary.Mapped),
		slog.Int("queued", summary.Queued),
		slog.Int("unmatched", summary.Unmatched),
		slog.Int("errors", summary.Errors),
	)

	return nil
}

func (s *Service) matchCard(ctx context.Context, pool *Pool, card *entity.CatalogCard, summary *entity.RunSummary) {
	subject := fmt.Sprintf("catalog card %d", card.ID)
	summary.Track(func(rs *entity.RunSummary) { rs.Processed++ })

	decision, err := pool.Decide(card)
	if err != nil {
		summary.RecordError(subject, err)
		return
	}

	switch {
	case decision.Winner != nil:
		if err := s.maps.Upsert(ctx, entity.CardMap{
			CatalogCardID: card.ID,
			MarketItemID:  decision.Winner.ID,
			Confidence:    decision.Method.Score(),
			MatchMethod:   decision.Method,
			UpdatedAt:     s.now(),
		}); err != nil {
			summary.RecordError(subject, err)
			return
		}
		summary.Track(func(rs *entity.RunSummary) { rs.Mapped++ })

	case decision.Ambiguous():
		cardID := card.ID
		_, _, err := s.reviews.UpsertPending(ctx, entity.ReviewEntry{
			Kind:          value.ReviewKindAmbiguousMatch,
			CatalogCardID: &cardID,
			Candidates:    decision.Candidates,
			Reason:        fmt.Sprintf("%d candidates tie at %s", len(decision.Candidates), decision.Method),
			Status:        value.ReviewStatusPending,
		})
		if err != nil {
			summary.RecordError(subject, err)
			return
		}
		summary.Track(func(rs *entity.RunSummary) { rs.Queued++ })
		summary.RecordError(subject, domain.NewError(errcodes.AmbiguousMatch,
			fmt.Sprintf("ambiguous %s match", decision.Method)))

		logger(ctx).Debug("ambiguous match queued for review",
			slog.Int64(logx.FieldCatalogCardID, card.ID),
			slog.Int("candidates", len(decision.Candidates)),
		)

	default:
		summary.Track(func(rs *entity.RunSummary) { rs.Unmatched++ })
	}
}

type triple struct {
	game   string
	set    string
	number string
}

// Pool indexes market items by normalized key and by (category, set, number).
type Pool struct {
	byKey    map[string][]*entity.MarketItem
	byTriple map[triple][]*entity.MarketItem
}

func NewPool(items []entity.MarketItem) *Pool {
	p := &Pool{
		byKey:    make(map[string][]*entity.MarketItem),
		byTriple: make(map[triple][]*entity.MarketItem),
	}

	for i := range items {
		item := &items[i]

		if item.NormalizedKey != "" {
			p.byKey[item.NormalizedKey] = append(p.byKey[item.NormalizedKey], item)
		}

		t := newTriple(item.Category, item.SetCode, item.CardNumber)
		if t.game != "" && t.set != "" && t.number != "" {
			p.byTriple[t] = append(p.byTriple[t], item)
		}
	}

	return p
}

// Decide runs the ladder for one card. Tier B is only consulted when Tier A is empty.
func (p *Pool) Decide(card *entity.CatalogCard) (Decision, error) {
	key := card.NormalizedKey
	if key == "" {
		built, err := cardkey.Build(cardkey.Parts{
			Game:     card.Game,
			SetCode:  card.SetCode,
			Number:   card.CardNumber,
			Variant:  card.Variant,
			Finish:   card.Finish,
			Language: card.Language,
		})
		if err != nil {
			return Decision{}, err
		}
		key = built
	}

	if found := p.byKey[key]; len(found) > 0 {
		return decide(value.MatchMethodKeyExact, found), nil
	}

	t := newTriple(card.Game, card.SetCode, card.CardNumber)
	if found := p.byTriple[t]; len(found) > 0 && t.set != "" && t.number != "" {
		return decide(value.MatchMethodSetNumberExact, found), nil
	}

	return Decision{}, nil
}

func decide(method value.MatchMethod, found []*entity.MarketItem) Decision {
	if len(found) == 1 {
		return Decision{Method: method, Winner: found[0]}
	}

	ranked := slices.Clone(found)
	slices.SortFunc(ranked, func(a, b *entity.MarketItem) int {
		if c := cmp.Compare(b.Completeness(), a.Completeness()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if ranked[0].Completeness() > ranked[1].Completeness() {
		return Decision{Method: method, Winner: ranked[0]}
	}

	candidates := make([]entity.ReviewCandidate, 0, entity.MaxReviewCandidates)
	for _, item := range ranked[:min(len(ranked), entity.MaxReviewCandidates)] {
		candidates = append(candidates, entity.ReviewCandidate{
			MarketItemID: item.ID,
			Score:        method.Score(),
			Completeness: item.Completeness(),
		})
	}

	return Decision{Method: method, Candidates: candidates}
}

func newTriple(game, set, number string) triple {
	return triple{
		game:   cardkey.Normalize(game),
		set:    cardkey.Normalize(set),
		number: cardkey.NormalizeNumber(number),
	}
}
