package pricing

import (
	"context"
	"slices"
	"sync"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
)

type store struct {
	mu      sync.Mutex
	items   map[int64]*entity.MarketItem
	events  []entity.PriceEvent
	graded  []entity.GradedPrice
	reviews []entity.ReviewEntry
	logs    map[int64]entity.AggregationLogEntry
	applied []entity.PriceUpdate

	// logErr fails standalone log writes. Logs carried by ApplyPrice still land.
	logErr error
}

func newStore(items ...entity.MarketItem) *store {
	s := &store{
		items: make(map[int64]*entity.MarketItem),
		logs:  make(map[int64]entity.AggregationLogEntry),
	}
	for i := range items {
		item := items[i]
		s.items[item.ID] = &item
	}
	return s
}

func (s *store) List(_ context.Context, filter entity.CatalogFilter) ([]entity.MarketItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.items))
	for id := range s.items {
		if id > filter.AfterID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	var out []entity.MarketItem
	for _, id := range ids {
		out = append(out, *s.items[id])
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *store) ApplyPrice(_ context.Context, u entity.PriceUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.items[u.MarketItemID]
	price := u.CurrentPrice
	item.CurrentPrice = &price
	item.Price24hAgo, item.Price7dAgo, item.Price30dAgo = u.Price24hAgo, u.Price7dAgo, u.Price30dAgo
	item.Change24h, item.Change7d, item.Change30d = u.Change24h, u.Change7d, u.Change30d
	item.Liquidity, item.Confidence = u.Liquidity, u.Confidence
	updated := u.UpdatedAt
	item.PriceUpdatedAt = &updated

	for i := range s.events {
		if slices.Contains(u.EventIDs, s.events[i].ID) {
			s.events[i].IsProcessed = true
		}
	}
	if u.Log != nil {
		s.logs[u.MarketItemID] = *u.Log
	}
	s.applied = append(s.applied, u)
	return nil
}

func (s *store) UpdateLiquidity(_ context.Context, id int64, l value.Liquidity, c value.Confidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id].Liquidity, s.items[id].Confidence = l, c
	return nil
}

func (s *store) ListWindow(_ context.Context, w entity.EventWindow) ([]entity.PriceEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []entity.PriceEvent
	for _, e := range s.events {
		if e.MatchedMarketItemID != w.MarketItemID || e.Currency != w.Currency {
			continue
		}
		if e.IsOutlier && e.OutlierReason != value.OutlierReasonMAD {
			continue
		}
		if e.ObservedAt.Before(w.Since) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *store) MarkOutliers(_ context.Context, ids []int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if slices.Contains(ids, s.events[i].ID) {
			s.events[i].IsOutlier = true
			s.events[i].OutlierReason = reason
		}
	}
	return nil
}

func (s *store) ClearOutliers(_ context.Context, ids []int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if slices.Contains(ids, s.events[i].ID) && s.events[i].OutlierReason == reason {
			s.events[i].IsOutlier = false
			s.events[i].OutlierReason = ""
		}
	}
	return nil
}

func (s *store) flagged() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, e := range s.events {
		if e.IsOutlier {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

type gradedStore struct{ s *store }

func (g gradedStore) Upsert(_ context.Context, p entity.GradedPrice) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	g.s.graded = append(g.s.graded, p)
	return nil
}

type reviewStore struct{ s *store }

func (r reviewStore) UpsertPending(_ context.Context, e entity.ReviewEntry) (int64, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, existing := range r.s.reviews {
		if existing.Kind == e.Kind && *existing.MarketItemID == *e.MarketItemID && existing.Status == value.ReviewStatusPending {
			e.ID = existing.ID
			r.s.reviews[i] = e
			return e.ID, false, nil
		}
	}
	e.ID = int64(len(r.s.reviews) + 1)
	r.s.reviews = append(r.s.reviews, e)
	return e.ID, true, nil
}

type logStore struct{ s *store }

func (l logStore) Upsert(_ context.Context, e entity.AggregationLogEntry) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if l.s.logErr != nil {
		return l.s.logErr
	}
	l.s.logs[e.MarketItemID] = e
	return nil
}

type notifierStub struct {
	mu    sync.Mutex
	calls []entity.ReviewEntry
}

func (n *notifierStub) NotifyGated(_ context.Context, e entity.ReviewEntry, _ entity.MarketItem) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, e)
	return nil
}
