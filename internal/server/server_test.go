package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/errcodes"
	"card_market/pkg/rest"
	"card_market/pkg/tests"
)

type enqueuerStub struct {
	stage value.Stage
	opts  entity.RunOptions
	err   error
}

func (e *enqueuerStub) Enqueue(_ context.Context, stage value.Stage, opts entity.RunOptions) (string, error) {
	e.stage, e.opts = stage, opts
	return "task-1", e.err
}

type summaryStub struct {
	summaries map[value.Stage]*entity.RunSummary
}

func (s summaryStub) Latest(_ context.Context, stage value.Stage) (*entity.RunSummary, error) {
	if summary, ok := s.summaries[stage]; ok {
		return summary, nil
	}
	return nil, domain.NewError(errcodes.NoRunSummary, "no run recorded")
}

type reviewStub struct {
	entries []entity.ReviewEntry
	filter  entity.ReviewFilter
}

func (r *reviewStub) List(_ context.Context, filter entity.ReviewFilter) ([]entity.ReviewEntry, error) {
	r.filter = filter
	return r.entries, nil
}

func (r *reviewStub) GetByID(_ context.Context, id int64) (*entity.ReviewEntry, error) {
	for _, e := range r.entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, domain.NewError(errcodes.NotFound, "review entry not found")
}

type logStub struct {
	limit int
}

func (l *logStub) ListByItem(_ context.Context, marketItemID int64, limit int) ([]entity.AggregationLogEntry, error) {
	l.limit = limit
	return []entity.AggregationLogEntry{{
		MarketItemID: marketItemID,
		RunDate:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Outcome:      value.OutcomeGated,
		NewPrice:     lo.ToPtr(140.0),
	}}, nil
}

type gradedStub struct{}

func (gradedStub) ListByItem(_ context.Context, marketItemID int64) ([]entity.GradedPrice, error) {
	return []entity.GradedPrice{{
		MarketItemID: marketItemID, Grader: "PSA", Grade: "10",
		RunDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Median: 320, SampleCount: 4,
	}}, nil
}

type cardMapStub struct{}

func (cardMapStub) ListByCard(_ context.Context, catalogCardID int64) ([]entity.CardMap, error) {
	if catalogCardID != 5 {
		return nil, nil
	}
	return []entity.CardMap{{
		CatalogCardID: 5, MarketItemID: 10, Confidence: 1, MatchMethod: value.MatchMethodKeyExact,
		UpdatedAt: time.Date(2024, 6, 1, 4, 30, 0, 0, time.UTC),
	}}, nil
}

type unmatchedStub struct {
	limit int
}

func (u *unmatchedStub) List(_ context.Context, limit int) ([]entity.UnmatchedItem, error) {
	u.limit = limit
	return []entity.UnmatchedItem{{
		Source: value.SourceEbaySold, ExternalID: "v1|123", Title: "Charizard lot",
		Reason: value.UnmatchedNoKey, Amount: decimal.RequireFromString("12.50"), Currency: "USD", SeenCount: 3,
	}}, nil
}

type fixture struct {
	client   tests.APIClient
	enqueuer *enqueuerStub
	reviews   *reviewStub
	logs      *logStub
	unmatched *unmatchedStub
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	finished := time.Date(2024, 6, 1, 5, 10, 0, 0, time.UTC)
	summary := entity.NewRunSummary("run-9", value.StageAggregate, entity.RunOptions{Category: "pokemon"}, finished.Add(-10*time.Minute))
	summary.Track(func(rs *entity.RunSummary) { rs.Applied, rs.Gated = 7, 1 })
	summary.Finish(finished)

	f := fixture{
		enqueuer: &enqueuerStub{},
		reviews: &reviewStub{entries: []entity.ReviewEntry{{
			ID:            3,
			Kind:          value.ReviewKindAmbiguousMatch,
			Status:        value.ReviewStatusPending,
			Reason:        "2 candidates tie at set_number_exact",
			CatalogCardID: lo.ToPtr(int64(5)),
			Candidates: []entity.ReviewCandidate{
				{MarketItemID: 10, Score: 0.98, Completeness: 2},
				{MarketItemID: 11, Score: 0.98, Completeness: 2},
			},
		}}},
		logs:      &logStub{},
		unmatched: &unmatchedStub{},
	}

	srv := NewServer(
		NewRunServer(f.enqueuer, summaryStub{summaries: map[value.Stage]*entity.RunSummary{value.StageAggregate: summary}}),
		NewReviewServer(f.reviews, f.logs, gradedStub{}),
		NewMatchServer(cardMapStub{}, f.unmatched),
	)

	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	f.client = tests.NewAPIClient(t, ts.URL, ts.Client())
	return f
}

func TestPostV1Run(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "Accepted", body: `{"stage":"match","category":"pokemon","limit":100}`, wantStatus: http.StatusAccepted},
		{name: "Unknown stage", body: `{"stage":"publish"}`, wantStatus: http.StatusBadRequest, wantCode: "ValidationError"},
		{name: "Broken JSON", body: `{"stage":`, wantStatus: http.StatusBadRequest, wantCode: "ValidationError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rq := require.New(t)
			f := newFixture(t)

			var (
				accepted rest.RunAccepted
				apiErr   rest.Error
			)
			resp, err := f.client.PostJSON(context.Background(), "/v1/runs", http.Header{}, tt.body, &accepted, &apiErr)
			rq.NoError(err)
			rq.Equal(tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				rq.Equal(rest.ErrorCode(tt.wantCode), apiErr.Code)
				return
			}
			rq.Equal(rest.RunAccepted{TaskID: "task-1", Stage: "match"}, accepted)
			rq.Equal(entity.RunOptions{Category: "pokemon", Limit: 100}, f.enqueuer.opts)
		})
	}
}

func TestPostV1RunConflict(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	f := newFixture(t)
	f.enqueuer.err = domain.NewError(errcodes.RunInProgress, "already queued")

	var apiErr rest.Error
	resp, err := f.client.Post(context.Background(), "/v1/runs", http.Header{}, rest.RunRequest{Stage: "ingest"}, nil, &apiErr)
	rq.NoError(err)
	rq.Equal(http.StatusConflict, resp.StatusCode)
	rq.Equal(rest.ErrorCode("RunInProgress"), apiErr.Code)
}

func TestGetV1LatestRun(t *testing.T) {
	t.Parallel()
	rq := require.New(t)
	f := newFixture(t)

	var summary rest.RunSummary
	resp, err := f.client.Get(context.Background(), "/v1/runs/aggregate/latest", http.Header{}, &summary, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal("run-9", summary.RunID)
	rq.Equal(7, summary.Counters["applied"])
	rq.Equal(1, summary.Counters["gated"])
	rq.NotNil(summary.FinishedAt)

	var apiErr rest.Error
	resp, err = f.client.Get(context.Background(), "/v1/runs/ingest/latest", http.Header{}, nil, &apiErr)
	rq.NoError(err)
	rq.Equal(http.StatusNotFound, resp.StatusCode)
	rq.Equal(rest.ErrorCode("NoRunSummary"), apiErr.Code)

	resp, err = f.client.Get(context.Background(), "/v1/runs/publish/latest", http.Header{}, nil, &apiErr)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal(rest.ErrorCode("InvalidStage"), apiErr.Code)
}

func TestGetV1Reviews(t *testing.T) {
	t.Parallel()
	rq := require.New(t)
	f := newFixture(t)

	var list rest.List[rest.Review]
	resp, err := f.client.Get(context.Background(), "/v1/reviews?status=pending&limit=20", http.Header{}, &list, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Len(list.Items, 1)
	rq.Len(list.Items[0].Candidates, 2)
	rq.Equal(value.ReviewStatusPending, f.reviews.filter.Status)
	rq.Equal(20, f.reviews.filter.Limit)

	var apiErr rest.Error
	resp, err = f.client.Get(context.Background(), "/v1/reviews?status=open", http.Header{}, nil, &apiErr)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal(rest.ErrorCode("InvalidReviewStatus"), apiErr.Code)

	resp, err = f.client.Get(context.Background(), "/v1/reviews?limit=0", http.Header{}, nil, &apiErr)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal(rest.ErrorCode("InvalidPaging"), apiErr.Code)
}

func TestGetV1Review(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
	}{
		{name: "Found", path: "/v1/reviews/3", wantStatus: http.StatusOK},
		{name: "Missing", path: "/v1/reviews/4", wantStatus: http.StatusNotFound, wantCode: "NotFound"},
		{name: "Bad id", path: "/v1/reviews/abc", wantStatus: http.StatusBadRequest, wantCode: "InvalidReviewID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rq := require.New(t)
			f := newFixture(t)

			var (
				review rest.Review
				apiErr rest.Error
			)
			resp, err := f.client.Get(context.Background(), tt.path, http.Header{}, &review, &apiErr)
			rq.NoError(err)
			rq.Equal(tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				rq.Equal(rest.ErrorCode(tt.wantCode), apiErr.Code)
				return
			}
			rq.Equal(int64(3), review.ID)
			rq.Equal("ambiguous_match", review.Kind)
			rq.Equal(int64(5), *review.CatalogCardID)
		})
	}
}

func TestGetV1MarketItemHistory(t *testing.T) {
	t.Parallel()
	rq := require.New(t)
	f := newFixture(t)

	var logs rest.List[rest.AggregationLogEntry]
	resp, err := f.client.Get(context.Background(), "/v1/market-items/42/aggregation-log", http.Header{}, &logs, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal(defaultListLimit, f.logs.limit)
	rq.Equal([]rest.AggregationLogEntry{{RunDate: "2024-06-01", Outcome: "gated", NewPrice: lo.ToPtr(140.0)}}, logs.Items)

	var graded rest.List[rest.GradedPrice]
	resp, err = f.client.Get(context.Background(), "/v1/market-items/42/graded-prices", http.Header{}, &graded, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal([]rest.GradedPrice{{Grader: "PSA", Grade: "10", RunDate: "2024-06-01", Median: 320, SampleCount: 4}}, graded.Items)

	var apiErr rest.Error
	resp, err = f.client.Get(context.Background(), "/v1/market-items/-1/aggregation-log", http.Header{}, nil, &apiErr)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal(rest.ErrorCode("InvalidMarketItemID"), apiErr.Code)
}

func TestGetV1CardMappings(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	f := newFixture(t)

	var list rest.List[rest.CardMapping]
	resp, err := f.client.Get(context.Background(), "/v1/catalog-cards/5/mappings", http.Header{}, &list, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Len(list.Items, 1)
	rq.Equal(int64(10), list.Items[0].MarketItemID)
	rq.Equal(string(value.MatchMethodKeyExact), list.Items[0].MatchMethod)

	var apiErr rest.Error
	resp, err = f.client.Get(context.Background(), "/v1/catalog-cards/abc/mappings", http.Header{}, nil, &apiErr)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal(rest.ErrorCode("InvalidCatalogCardID"), apiErr.Code)
}

func TestGetV1Unmatched(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	f := newFixture(t)

	var list rest.List[rest.UnmatchedListing]
	resp, err := f.client.Get(context.Background(), "/v1/unmatched?limit=25", http.Header{}, &list, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal(25, f.unmatched.limit)
	rq.Len(list.Items, 1)
	rq.Equal("12.5", list.Items[0].Amount)
	rq.Equal("no_key", list.Items[0].Reason)
	rq.Equal(3, list.Items[0].SeenCount)
}
