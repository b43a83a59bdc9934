package server

import (
	"context"
	"fmt"
	"net/http"

	"git.appkode.ru/pub/go/failure"
	"github.com/samber/lo"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/errcodes"
	"card_market/pkg/httpx/reply"
	"card_market/pkg/rest"
)

type reviewReader interface {
	List(ctx context.Context, filter entity.ReviewFilter) ([]entity.ReviewEntry, error)
	GetByID(ctx context.Context, id int64) (*entity.ReviewEntry, error)
}

type aggregationLogReader interface {
	ListByItem(ctx context.Context, marketItemID int64, limit int) ([]entity.AggregationLogEntry, error)
}

type gradedPriceReader interface {
	ListByItem(ctx context.Context, marketItemID int64) ([]entity.GradedPrice, error)
}

type ReviewServer struct {
	reviews reviewReader
	logs    aggregationLogReader
	graded  gradedPriceReader
}

func NewReviewServer(reviews reviewReader, logs aggregationLogReader, graded gradedPriceReader) ReviewServer {
	return ReviewServer{
		reviews: reviews,
		logs:    logs,
		graded:  graded,
	}
}

func (s ReviewServer) getV1Reviews(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	limit, err := parseLimit(r)
	if err != nil {
		return err
	}

	filter := entity.ReviewFilter{Limit: limit, Kind: value.ReviewKind(r.URL.Query().Get("kind"))}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := value.ParseReviewStatus(raw)
		if err != nil {
			return failure.NewInvalidArgumentError(
				err.Error(),
				failure.WithCode(errcodes.InvalidReviewStatus),
				failure.WithDescription("status must be one of pending, resolved, rejected"),
			)
		}
		filter.Status = status
	}

	entries, err := s.reviews.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("reviews.List: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.List[rest.Review]{
		Items: lo.Map(entries, func(e entity.ReviewEntry, _ int) rest.Review { return newRESTReview(e) }),
	})

	return nil
}

func (s ReviewServer) getV1Review(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseID(r.PathValue("id"), errcodes.InvalidReviewID)
	if err != nil {
		return err
	}

	entry, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("reviews.GetByID: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTReview(*entry))

	return nil
}

func (s ReviewServer) getV1AggregationLog(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseID(r.PathValue("id"), errcodes.InvalidMarketItemID)
	if err != nil {
		return err
	}

	limit, err := parseLimit(r)
	if err != nil {
		return err
	}

	entries, err := s.logs.ListByItem(ctx, id, limit)
	if err != nil {
		return fmt.Errorf("logs.ListByItem: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.List[rest.AggregationLogEntry]{
		Items: lo.Map(entries, func(e entity.AggregationLogEntry, _ int) rest.AggregationLogEntry {
			return newRESTAggregationLogEntry(e)
		}),
	})

	return nil
}

func (s ReviewServer) getV1GradedPrices(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseID(r.PathValue("id"), errcodes.InvalidMarketItemID)
	if err != nil {
		return err
	}

	prices, err := s.graded.ListByItem(ctx, id)
	if err != nil {
		return fmt.Errorf("graded.ListByItem: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.List[rest.GradedPrice]{
		Items: lo.Map(prices, func(p entity.GradedPrice, _ int) rest.GradedPrice { return newRESTGradedPrice(p) }),
	})

	return nil
}
