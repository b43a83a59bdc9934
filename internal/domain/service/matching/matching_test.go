package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
)

func newSummary(opts entity.RunOptions) *entity.RunSummary {
	return entity.NewRunSummary("test", value.StageMatch, opts, time.Unix(0, 0))
}

func TestPoolDecide(t *testing.T) {
	t.Parallel()

	items := []entity.MarketItem{
		{ID: 1, Category: "pokemon", SetCode: "SV1", CardNumber: "25", Variant: "reverse", NormalizedKey: "game:pokemon|set:sv1|num:25|var:reverse"},
		{ID: 2, Category: "pokemon", SetCode: "SV1", CardNumber: "26"},
		{ID: 3, Category: "pokemon", SetCode: "SV1", CardNumber: "26"},
		{ID: 4, Category: "pokemon", SetCode: "SV2", CardNumber: "10"},
		{ID: 5, Category: "pokemon", SetCode: "SV2", CardNumber: "010", Language: "en"},
		{ID: 6, Category: "Pokemon", SetCode: "sv3", CardNumber: "7/200"},
	}

	tests := []struct {
		name           string
		card           entity.CatalogCard
		wantMethod     value.MatchMethod
		wantWinner     int64
		wantCandidates []entity.ReviewCandidate
		wantErr        bool
	}{
		{
			name:       "Tier A key match",
			card:       entity.CatalogCard{ID: 10, Game: "Pokemon", SetCode: "sv1", CardNumber: "025/198", Variant: "Reverse"},
			wantMethod: value.MatchMethodKeyExact,
			wantWinner: 1,
		},
		{
			name: "Tier B tie without strict winner",
			card: entity.CatalogCard{ID: 11, Game: "pokemon", SetCode: "sv1", CardNumber: "26", Variant: "holo"},
			wantMethod: value.MatchMethodSetNumberExact,
			wantCandidates: []entity.ReviewCandidate{
				{MarketItemID: 2, Score: 0.98, Completeness: 0},
				{MarketItemID: 3, Score: 0.98, Completeness: 0},
			},
		},
		{
			name:       "Tier B tie broken by completeness",
			card:       entity.CatalogCard{ID: 12, Game: "pokemon", SetCode: "SV2", CardNumber: "10", Finish: "holo"},
			wantMethod: value.MatchMethodSetNumberExact,
			wantWinner: 5,
		},
		{
			name:       "Tier B with normalized number",
			card:       entity.CatalogCard{ID: 13, Game: "POKEMON", SetCode: "SV3", CardNumber: "007"},
			wantMethod: value.MatchMethodSetNumberExact,
			wantWinner: 6,
		},
		{
			name: "No candidate",
			card: entity.CatalogCard{ID: 14, Game: "pokemon", SetCode: "sv9", CardNumber: "1"},
		},
		{
			name:    "Insufficient key data",
			card:    entity.CatalogCard{ID: 15, Game: "pokemon"},
			wantErr: true,
		},
	}

	pool := NewPool(items)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rq := require.New(t)

			got, err := pool.Decide(&tt.card)
			if tt.wantErr {
				rq.Error(err)
				return
			}
			rq.NoError(err)
			rq.Equal(tt.wantMethod, got.Method)

			if tt.wantWinner != 0 {
				rq.NotNil(got.Winner)
				rq.Equal(tt.wantWinner, got.Winner.ID)
				rq.False(got.Ambiguous())
				return
			}

			rq.Nil(got.Winner)
			rq.Equal(tt.wantCandidates, got.Candidates)
		})
	}
}

func TestDecideCandidateRanking(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	var found []*entity.MarketItem
	for id := int64(9); id >= 1; id-- {
		item := &entity.MarketItem{ID: id}
		if id%3 == 0 {
			item.Variant, item.Finish = "v", "f"
		}
		found = append(found, item)
	}

	got := decide(value.MatchMethodSetNumberExact, found)

	rq.Nil(got.Winner)
	rq.Len(got.Candidates, entity.MaxReviewCandidates)
	rq.Equal([]int64{3, 6, 9, 1, 2}, []int64{
		got.Candidates[0].MarketItemID,
		got.Candidates[1].MarketItemID,
		got.Candidates[2].MarketItemID,
		got.Candidates[3].MarketItemID,
		got.Candidates[4].MarketItemID,
	})
}

func TestServiceRunIdempotent(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	cards := &cardRepoStub{cards: []entity.CatalogCard{
		{ID: 1, Game: "pokemon", SetCode: "sv1", CardNumber: "25", Variant: "reverse"},
		{ID: 2, Game: "pokemon", SetCode: "sv1", CardNumber: "26"},
		{ID: 3, Game: "pokemon", SetCode: "sv9", CardNumber: "1"},
		{ID: 4, Game: "pokemon"},
	}}
	items := &itemRepoStub{items: []entity.MarketItem{
		{ID: 100, Category: "pokemon", SetCode: "sv1", CardNumber: "25", NormalizedKey: "game:pokemon|set:sv1|num:25|var:reverse"},
		{ID: 101, Category: "pokemon", SetCode: "sv1", CardNumber: "26"},
		{ID: 102, Category: "pokemon", SetCode: "sv1", CardNumber: "26"},
	}}
	maps := &mapRepoStub{}
	reviews := &reviewRepoStub{}

	svc := NewService(cards, items, maps, reviews).WithBatchSize(2)

	for range 2 {
		summary := newSummary(entity.RunOptions{})
		rq.NoError(svc.Run(context.Background(), summary))

		rq.Equal(4, summary.Processed)
		rq.Equal(1, summary.Mapped)
		rq.Equal(1, summary.Queued)
		rq.Equal(1, summary.Unmatched)
		rq.Equal(2, summary.Errors)
		rq.Equal(map[string]int{"AmbiguousMatch": 1, "DataError": 1}, summary.ErrorsByCode)
	}

	rq.Len(maps.rows, 1)
	row := maps.rows[mapKey{card: 1, item: 100}]
	rq.Equal(1.0, row.Confidence)
	rq.Equal(value.MatchMethodKeyExact, row.MatchMethod)

	rq.Len(reviews.entries, 1)
	entry := reviews.entries[reviewKey{kind: value.ReviewKindAmbiguousMatch, card: 2}]
	rq.Len(entry.Candidates, 2)
	rq.Equal(entry.Candidates[0].Score, entry.Candidates[1].Score)
	rq.NotContains(maps.rows, mapKey{card: 2, item: 101})
	rq.NotContains(maps.rows, mapKey{card: 2, item: 102})
}

func TestServiceRunRespectsLimit(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	cards := &cardRepoStub{}
	for id := int64(1); id <= 7; id++ {
		cards.cards = append(cards.cards, entity.CatalogCard{ID: id, Game: "pokemon", SetCode: "x", CardNumber: "1"})
	}

	svc := NewService(cards, &itemRepoStub{}, &mapRepoStub{}, &reviewRepoStub{}).WithBatchSize(2)

	summary := newSummary(entity.RunOptions{Limit: 5})
	rq.NoError(svc.Run(context.Background(), summary))
	rq.Equal(5, summary.Processed)
	rq.Equal(5, summary.Unmatched)
}
