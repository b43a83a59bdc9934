package entity

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"card_market/internal/domain"
	"card_market/internal/domain/value"
	"card_market/pkg/errcodes"
)

func TestRunSummaryRecordError(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	summary := NewRunSummary("run1", value.StageMatch, RunOptions{}, time.Unix(0, 0))

	summary.RecordError("card 1", domain.NewError(errcodes.AmbiguousMatch, "tie"))
	summary.RecordError("card 2", fmt.Errorf("wrap: %w", domain.NewError(errcodes.DataError, "no set")))
	summary.RecordError("card 3", errors.New("boom"))
	summary.RecordError("card 4", nil)

	rq.Equal(3, summary.Errors)
	rq.Equal(map[string]int{"AmbiguousMatch": 1, "DataError": 1, "Unknown": 1}, summary.ErrorsByCode)
	rq.Equal([]string{"card 1: tie", "card 2: wrap: no set", "card 3: boom"}, summary.Messages)
}

func TestRunSummaryMessagesBounded(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	summary := NewRunSummary("run1", value.StageIngest, RunOptions{}, time.Unix(0, 0))

	var wg sync.WaitGroup
	for i := range 120 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary.RecordError(fmt.Sprintf("item %d", i), domain.NewError(errcodes.SourceError, "timeout"))
			summary.Track(func(s *RunSummary) { s.Processed++ })
		}()
	}
	wg.Wait()

	rq.Equal(120, summary.Errors)
	rq.Equal(120, summary.Processed)
	rq.Len(summary.Messages, maxSummaryMessages)
}

func TestMarketItemCompleteness(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	rq.Equal(0, (&MarketItem{}).Completeness())
	rq.Equal(2, (&MarketItem{Variant: "reverse", NormalizedKey: "game:pokemon"}).Completeness())
	rq.Equal(4, (&MarketItem{Variant: "v", Finish: "f", Language: "en", NormalizedKey: "k"}).Completeness())
}

func TestRunDate(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	ts := time.Date(2024, 5, 3, 23, 59, 0, 0, time.FixedZone("X", -3*3600))
	rq.Equal(time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC), RunDate(ts))
}
