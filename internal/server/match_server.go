package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/samber/lo"

	"card_market/internal/domain/entity"
	"card_market/pkg/errcodes"
	"card_market/pkg/httpx/reply"
	"card_market/pkg/rest"
)

type cardMapReader interface {
	ListByCard(ctx context.Context, catalogCardID int64) ([]entity.CardMap, error)
}

type unmatchedReader interface {
	List(ctx context.Context, limit int) ([]entity.UnmatchedItem, error)
}

// MatchServer exposes what matching and ingestion decided: card mappings and
// listings no market item claimed.
type MatchServer struct {
	maps      cardMapReader
	unmatched unmatchedReader
}

func NewMatchServer(maps cardMapReader, unmatched unmatchedReader) MatchServer {
	return MatchServer{
		maps:      maps,
		unmatched: unmatched,
	}
}

func (s MatchServer) getV1CardMappings(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseID(r.PathValue("id"), errcodes.InvalidCatalogCardID)
	if err != nil {
		return err
	}

	maps, err := s.maps.ListByCard(ctx, id)
	if err != nil {
		return fmt.Errorf("maps.ListByCard: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.List[rest.CardMapping]{
		Items: lo.Map(maps, func(m entity.CardMap, _ int) rest.CardMapping { return newRESTCardMapping(m) }),
	})

	return nil
}

func (s MatchServer) getV1Unmatched(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	limit, err := parseLimit(r)
	if err != nil {
		return err
	}

	items, err := s.unmatched.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("unmatched.List: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.List[rest.UnmatchedListing]{
		Items: lo.Map(items, func(u entity.UnmatchedItem, _ int) rest.UnmatchedListing { return newRESTUnmatchedListing(u) }),
	})

	return nil
}
