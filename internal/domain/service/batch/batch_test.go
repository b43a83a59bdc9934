package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func listIDs(total int64) Lister[int64] {
	return func(_ context.Context, limit int, afterID int64) ([]int64, error) {
		var out []int64
		for id := afterID + 1; id <= total && len(out) < limit; id++ {
			out = append(out, id)
		}
		return out, nil
	}
}

func identity(id int64) int64 { return id }

func TestWalk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		total     int64
		size      int
		limit     int
		wantSeen  int
		wantPages int
	}{
		{name: "Exact pages", total: 6, size: 3, wantSeen: 6, wantPages: 2},
		{name: "Short last page", total: 7, size: 3, wantSeen: 7, wantPages: 3},
		{name: "Limit cuts mid page", total: 10, size: 3, limit: 5, wantSeen: 5, wantPages: 2},
		{name: "Empty table", total: 0, size: 3, wantSeen: 0, wantPages: 0},
		{name: "Default size", total: 3, size: 0, wantSeen: 3, wantPages: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rq := require.New(t)

			var seen []int64
			pages := 0

			err := Walk(context.Background(), tt.size, tt.limit, listIDs(tt.total), identity,
				func(_ context.Context, page []int64) error {
					pages++
					seen = append(seen, page...)
					return nil
				})

			rq.NoError(err)
			rq.Len(seen, tt.wantSeen)
			rq.Equal(tt.wantPages, pages)
			for i, id := range seen {
				rq.Equal(int64(i+1), id)
			}
		})
	}
}

func TestWalkStopsOnError(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	boom := errors.New("boom")
	err := Walk(context.Background(), 2, 0, listIDs(10), identity,
		func(_ context.Context, _ []int64) error { return boom })
	rq.ErrorIs(err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Walk(ctx, 2, 0, listIDs(10), identity,
		func(_ context.Context, _ []int64) error { return nil })
	rq.ErrorIs(err, context.Canceled)
}
