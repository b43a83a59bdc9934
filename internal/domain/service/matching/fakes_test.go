package matching

import (
	"context"
	"strings"
	"sync"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
)

type cardRepoStub struct {
	cards []entity.CatalogCard
}

func (r *cardRepoStub) List(_ context.Context, filter entity.CatalogFilter) ([]entity.CatalogCard, error) {
	var out []entity.CatalogCard
	for _, c := range r.cards {
		if c.ID <= filter.AfterID {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(c.Game, filter.Category) {
			continue
		}
		out = append(out, c)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

type itemRepoStub struct {
	items []entity.MarketItem
}

func (r *itemRepoStub) List(_ context.Context, filter entity.CatalogFilter) ([]entity.MarketItem, error) {
	var out []entity.MarketItem
	for _, it := range r.items {
		if filter.Category != "" && !strings.EqualFold(it.Category, filter.Category) {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

type mapKey struct {
	card int64
	item int64
}

type mapRepoStub struct {
	mu   sync.Mutex
	rows map[mapKey]entity.CardMap
}

func (r *mapRepoStub) Upsert(_ context.Context, m entity.CardMap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows == nil {
		r.rows = make(map[mapKey]entity.CardMap)
	}
	r.rows[mapKey{card: m.CatalogCardID, item: m.MarketItemID}] = m
	return nil
}

type reviewKey struct {
	kind value.ReviewKind
	card int64
}

type reviewRepoStub struct {
	mu      sync.Mutex
	entries map[reviewKey]entity.ReviewEntry
}

func (r *reviewRepoStub) UpsertPending(_ context.Context, e entity.ReviewEntry) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[reviewKey]entity.ReviewEntry)
	}
	key := reviewKey{kind: e.Kind, card: *e.CatalogCardID}
	_, exists := r.entries[key]
	e.ID = int64(len(r.entries) + 1)
	r.entries[key] = e
	return e.ID, !exists, nil
}
