package runstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/errcodes"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR is not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, client.Ping(context.Background()).Err())
	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStoreRoundTrip(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	store := NewStore(newTestClient(t)).WithTTL(time.Minute)

	_, err := store.Latest(ctx, value.StageAggregate)
	rq.True(domain.HasCode(err, errcodes.NoRunSummary))

	started := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	summary := entity.NewRunSummary("run-1", value.StageAggregate, entity.RunOptions{Category: "pokemon"}, started)
	summary.Track(func(rs *entity.RunSummary) { rs.Applied = 3 })
	summary.RecordError("item 1", domain.NewError(errcodes.InsufficientData, "no samples"))
	summary.Finish(started.Add(time.Minute))

	rq.NoError(store.Save(ctx, summary))

	got, err := store.Latest(ctx, value.StageAggregate)
	rq.NoError(err)
	rq.Equal("run-1", got.RunID)
	rq.Equal(3, got.Applied)
	rq.Equal(1, got.ErrorsByCode["InsufficientData"])
	rq.Equal("pokemon", got.Options.Category)
	rq.True(started.Add(time.Minute).Equal(got.FinishedAt))
}

func TestLatestKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "card_market:run:ingest:latest", latestKey(value.StageIngest))
}
