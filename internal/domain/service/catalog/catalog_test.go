package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
)

type cardRepoStub struct {
	cards   []entity.CatalogCard
	updates map[int64]string
}

func (r *cardRepoStub) List(_ context.Context, filter entity.CatalogFilter) ([]entity.CatalogCard, error) {
	var out []entity.CatalogCard
	for _, c := range r.cards {
		if c.ID <= filter.AfterID {
			continue
		}
		out = append(out, c)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *cardRepoStub) UpdateNormalizedKey(_ context.Context, id int64, key string) error {
	if r.updates == nil {
		r.updates = make(map[int64]string)
	}
	r.updates[id] = key
	return nil
}

type itemRepoStub struct {
	items     []entity.MarketItem
	updates   map[int64]string
	updateErr error
}

func (r *itemRepoStub) List(_ context.Context, filter entity.CatalogFilter) ([]entity.MarketItem, error) {
	var out []entity.MarketItem
	for _, it := range r.items {
		if it.ID <= filter.AfterID {
			continue
		}
		out = append(out, it)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *itemRepoStub) UpdateNormalizedKey(_ context.Context, id int64, key string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if r.updates == nil {
		r.updates = make(map[int64]string)
	}
	r.updates[id] = key
	return nil
}

func TestKeyServiceRefresh(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	cards := &cardRepoStub{cards: []entity.CatalogCard{
		{ID: 1, Game: "Pokemon", SetCode: "SV1", CardNumber: "025"},
		{ID: 2, Game: "pokemon", SetCode: "sv1", CardNumber: "26", NormalizedKey: "game:pokemon|set:sv1|num:26"},
		{ID: 3, Game: "pokemon"},
	}}
	items := &itemRepoStub{items: []entity.MarketItem{
		{ID: 10, Category: "pokemon", SetCode: "sv1", CardNumber: "25", Variant: "Reverse"},
		{ID: 11, Category: "", SetCode: "sv1", CardNumber: "25"},
	}}

	summary := entity.NewRunSummary("r", value.StageKeys, entity.RunOptions{}, time.Unix(0, 0))
	svc := NewKeyService(cards, items).WithBatchSize(1)

	rq.NoError(svc.Refresh(context.Background(), summary))

	rq.Equal(map[int64]string{1: "game:pokemon|set:sv1|num:25"}, cards.updates)
	rq.Equal(map[int64]string{10: "game:pokemon|set:sv1|num:25|var:reverse"}, items.updates)
	rq.Equal(5, summary.Processed)
	rq.Equal(2, summary.Updated)
	rq.Equal(2, summary.Errors)
	rq.Equal(map[string]int{"DataError": 2}, summary.ErrorsByCode)
}

func TestKeyServiceRefreshUpdateFailureContinues(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	items := &itemRepoStub{
		items: []entity.MarketItem{
			{ID: 1, Category: "pokemon", SetCode: "a", CardNumber: "1"},
			{ID: 2, Category: "pokemon", SetCode: "b", CardNumber: "2"},
		},
		updateErr: errors.New("db down"),
	}

	summary := entity.NewRunSummary("r", value.StageKeys, entity.RunOptions{Limit: 10}, time.Unix(0, 0))

	rq.NoError(NewKeyService(&cardRepoStub{}, items).Refresh(context.Background(), summary))
	rq.Equal(2, summary.Processed)
	rq.Equal(0, summary.Updated)
	rq.Equal(2, summary.Errors)
	rq.Len(summary.Messages, 2)
}
