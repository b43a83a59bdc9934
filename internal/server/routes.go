package server

import (
	"errors"
	"net/http"
	"strconv"

	"git.appkode.ru/pub/go/failure"
	"github.com/go-chi/chi/v5"

	"card_market/internal/domain"
	"card_market/pkg/errcodes"
	"card_market/pkg/httpx/reply"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s Server) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", handler(s.postV1Run))
			r.Get("/{stage}/latest", handler(s.getV1LatestRun))
		})
		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", handler(s.getV1Reviews))
			r.Get("/{id}", handler(s.getV1Review))
		})
		r.Route("/market-items/{id}", func(r chi.Router) {
			r.Get("/aggregation-log", handler(s.getV1AggregationLog))
			r.Get("/graded-prices", handler(s.getV1GradedPrices))
		})
		r.Get("/catalog-cards/{id}/mappings", handler(s.getV1CardMappings))
		r.Get("/unmatched", handler(s.getV1Unmatched))
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}

		ctx := r.Context()
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case errcodes.NotFound, errcodes.NoRunSummary:
				reply.NotFound(ctx, w, appErr.Code, appErr.Message)
				return
			case errcodes.RunInProgress:
				reply.Conflict(ctx, w, appErr.Code, appErr.Message)
				return
			}
		}
		reply.Error(ctx, w, err)
	}
}

func parseID(raw string, code failure.ErrorCode) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, failure.NewInvalidArgumentError(
			"invalid id",
			failure.WithCode(code),
			failure.WithDescription("id must be a positive integer"),
		)
	}
	return id, nil
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > maxListLimit {
		return 0, failure.NewInvalidArgumentError(
			"invalid limit",
			failure.WithCode(errcodes.InvalidPaging),
			failure.WithDescription("limit must be between 1 and 500"),
		)
	}
	return limit, nil
}
