package persistence

import (
	"context"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/dbtest"
	"card_market/pkg/errcodes"
)

// openTestDB connects to PG_TEST_DSN and recreates the schema. The tests
// share one database, so they do not run in parallel.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("PG_TEST_DSN is not set")
	}

	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, dbtest.MigrateFromFile(db,
		"migrations/000001_init.down.sql",
		"migrations/000001_init.up.sql",
	))
	return db
}

func seedItem(t *testing.T, db *sqlx.DB, key string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRowx(`
		INSERT INTO market_items (category, name, set_code, card_number, currency, normalized_key)
		VALUES ('pokemon', 'Pikachu', 'sv1', '25', 'EUR', $1) RETURNING id`, key).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestPriceEventLifecycle(t *testing.T) {
	db := openTestDB(t)
	rq := require.New(t)
	ctx := context.Background()

	itemID := seedItem(t, db, "game:pokemon|set:sv1|num:25")
	events := NewPriceEventRepository(db)
	items := NewMarketItemRepository(db)

	now := time.Now().UTC().Truncate(time.Second)
	event := entity.PriceEvent{
		Source:              value.SourceCardmarket,
		ExternalID:          "cm-1",
		EventType:           value.EventTypeListing,
		Amount:              decimal.RequireFromString("10.50"),
		Currency:            "EUR",
		MatchedMarketItemID: itemID,
		ObservedAt:          now.Add(-time.Hour),
		IngestedAt:          now,
	}

	inserted, err := events.Insert(ctx, event)
	rq.NoError(err)
	rq.True(inserted)

	inserted, err = events.Insert(ctx, event)
	rq.NoError(err)
	rq.False(inserted, "second insert of the same external id is a no-op")

	window := entity.EventWindow{MarketItemID: itemID, Currency: "EUR", Since: now.Add(-24 * time.Hour)}
	got, err := events.ListWindow(ctx, window)
	rq.NoError(err)
	rq.Len(got, 1)
	rq.True(decimal.RequireFromString("10.5").Equal(got[0].Amount))
	rq.True(got[0].Grade.IsRaw())

	rq.NoError(items.ApplyPrice(ctx, entity.PriceUpdate{
		MarketItemID: itemID,
		CurrentPrice: 10.5,
		Liquidity:    value.LiquidityLow,
		Confidence:   value.ConfidenceLow,
		EventIDs:     []int64{got[0].ID},
		UpdatedAt:    now,
	}))

	item, err := items.GetByID(ctx, itemID)
	rq.NoError(err)
	rq.NotNil(item.CurrentPrice)
	rq.InDelta(10.5, *item.CurrentPrice, 0.001)
	rq.Equal(value.LiquidityLow, item.Liquidity)

	got, err = events.ListWindow(ctx, window)
	rq.NoError(err)
	rq.True(got[0].IsProcessed)

	rq.NoError(events.MarkOutliers(ctx, []int64{got[0].ID}, value.OutlierReasonMAD))
	got, err = events.ListWindow(ctx, window)
	rq.NoError(err)
	rq.Len(got, 1, "MAD flags are recomputed, so the event stays in the window")
	rq.True(got[0].IsOutlier)

	rq.NoError(events.ClearOutliers(ctx, []int64{got[0].ID}, value.OutlierReasonMAD))
	got, err = events.ListWindow(ctx, window)
	rq.NoError(err)
	rq.False(got[0].IsOutlier)
	rq.Empty(got[0].OutlierReason)

	rq.NoError(events.MarkOutliers(ctx, []int64{got[0].ID}, "keyword:proxy"))
	rq.NoError(events.ClearOutliers(ctx, []int64{got[0].ID}, value.OutlierReasonMAD))
	got, err = events.ListWindow(ctx, window)
	rq.NoError(err)
	rq.Empty(got, "ingestion flags are never cleared")
}

func TestApplyPriceWritesLogInSameTransaction(t *testing.T) {
	db := openTestDB(t)
	rq := require.New(t)
	ctx := context.Background()

	itemID := seedItem(t, db, "game:pokemon|set:sv1|num:25")
	items := NewMarketItemRepository(db)
	logs := NewAggregationLogRepository(db)

	now := time.Now().UTC().Truncate(time.Second)
	entry := entity.AggregationLogEntry{
		MarketItemID: itemID,
		RunDate:      entity.RunDate(now),
		NewPrice:     lo.ToPtr(12.0),
		SampleCount:  3,
		SourceCount:  1,
		Outcome:      value.OutcomeApplied,
		WasUpdated:   true,
		UpdatedAt:    now,
	}

	rq.NoError(items.ApplyPrice(ctx, entity.PriceUpdate{
		MarketItemID: itemID,
		CurrentPrice: 12,
		Liquidity:    value.LiquidityLow,
		Confidence:   value.ConfidenceLow,
		UpdatedAt:    now,
		Log:          &entry,
	}))

	got, err := logs.ListByItem(ctx, itemID, 0)
	rq.NoError(err)
	rq.Len(got, 1)
	rq.True(got[0].WasUpdated)

	missing := entry
	missing.MarketItemID = itemID + 1000
	err = items.ApplyPrice(ctx, entity.PriceUpdate{MarketItemID: missing.MarketItemID, CurrentPrice: 1, Log: &missing})
	rq.True(domain.HasCode(err, errcodes.NotFound))

	got, err = logs.ListByItem(ctx, missing.MarketItemID, 0)
	rq.NoError(err)
	rq.Empty(got)
}

func TestApplyPriceUnknownItem(t *testing.T) {
	db := openTestDB(t)

	err := NewMarketItemRepository(db).ApplyPrice(context.Background(), entity.PriceUpdate{MarketItemID: 999, CurrentPrice: 1})
	require.True(t, domain.HasCode(err, errcodes.NotFound))
}

func TestReviewUpsertPending(t *testing.T) {
	db := openTestDB(t)
	rq := require.New(t)
	ctx := context.Background()

	itemID := seedItem(t, db, "")
	reviews := NewReviewRepository(db)

	entry := entity.ReviewEntry{
		Kind:          value.ReviewKindVolatilityGate,
		MarketItemID:  lo.ToPtr(itemID),
		Reason:        "change exceeds 30%",
		PreviousPrice: lo.ToPtr(100.0),
		ProposedPrice: lo.ToPtr(140.0),
		ChangePercent: lo.ToPtr(40.0),
	}

	id, created, err := reviews.UpsertPending(ctx, entry)
	rq.NoError(err)
	rq.True(created)

	entry.ProposedPrice = lo.ToPtr(150.0)
	again, created, err := reviews.UpsertPending(ctx, entry)
	rq.NoError(err)
	rq.False(created)
	rq.Equal(id, again)

	got, err := reviews.GetByID(ctx, id)
	rq.NoError(err)
	rq.Equal(value.ReviewStatusPending, got.Status)
	rq.InDelta(150.0, *got.ProposedPrice, 0.001)
	rq.Empty(got.Candidates)

	list, err := reviews.List(ctx, entity.ReviewFilter{Status: value.ReviewStatusPending})
	rq.NoError(err)
	rq.Len(list, 1)

	_, err = reviews.GetByID(ctx, id+100)
	rq.True(domain.HasCode(err, errcodes.NotFound))
}

func TestAggregationLogUpsertIsPerDay(t *testing.T) {
	db := openTestDB(t)
	rq := require.New(t)
	ctx := context.Background()

	itemID := seedItem(t, db, "")
	logs := NewAggregationLogRepository(db)
	day := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)

	rq.NoError(logs.Upsert(ctx, entity.AggregationLogEntry{
		MarketItemID: itemID, RunDate: day, Outcome: value.OutcomeSkipped, SkipReason: value.SkipReasonInsufficientData,
	}))
	rq.NoError(logs.Upsert(ctx, entity.AggregationLogEntry{
		MarketItemID: itemID, RunDate: day.Add(time.Hour), Outcome: value.OutcomeApplied,
		NewPrice: lo.ToPtr(12.0), SampleCount: 6, SourceCount: 2, WasUpdated: true,
	}))

	entries, err := logs.ListByItem(ctx, itemID, 0)
	rq.NoError(err)
	rq.Len(entries, 1)
	rq.Equal(value.OutcomeApplied, entries[0].Outcome)
	rq.True(entries[0].WasUpdated)
}

func TestUnmatchedUpsertCountsSightings(t *testing.T) {
	db := openTestDB(t)
	rq := require.New(t)
	ctx := context.Background()

	repo := NewUnmatchedRepository(db)
	item := entity.UnmatchedItem{
		Source:     value.SourceEbaySold,
		ExternalID: "e-1",
		Title:      "mystery card",
		Reason:     value.UnmatchedNoKey,
		Amount:     decimal.NewFromInt(5),
		Currency:   "EUR",
	}
	rq.NoError(repo.Upsert(ctx, item))
	rq.NoError(repo.Upsert(ctx, item))

	rows, err := repo.List(ctx, 10)
	rq.NoError(err)
	rq.Len(rows, 1)
	rq.Equal(2, rows[0].SeenCount)
	rq.Empty(rows[0].CanonicalKey)
}

func TestCatalogListPaging(t *testing.T) {
	db := openTestDB(t)
	rq := require.New(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, err := db.Exec(`INSERT INTO catalog_cards (game, set_code, card_number, canonical_key) VALUES ('pokemon', 'sv1', '1', $1)`, key)
		rq.NoError(err)
	}
	_, err := db.Exec(`INSERT INTO catalog_cards (game, canonical_key) VALUES ('mtg', 'd')`)
	rq.NoError(err)

	repo := NewCatalogCardRepository(db)
	first, err := repo.List(ctx, entity.CatalogFilter{Category: "pokemon", Limit: 2})
	rq.NoError(err)
	rq.Len(first, 2)

	rest, err := repo.List(ctx, entity.CatalogFilter{Category: "pokemon", Limit: 2, AfterID: first[1].ID})
	rq.NoError(err)
	rq.Len(rest, 1)
	rq.Equal("c", rest[0].CanonicalKey)

	rq.NoError(repo.UpdateNormalizedKey(ctx, rest[0].ID, "game:pokemon|set:sv1|num:1"))
	rq.True(domain.HasCode(repo.UpdateNormalizedKey(ctx, 9999, "x"), errcodes.NotFound))
}
