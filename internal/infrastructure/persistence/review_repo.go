package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/pkg/errcodes"
	"card_market/pkg/lox"
)

const defaultReviewLimit = 100

var reviewColumns = []string{ //nolint:gochecknoglobals
	"id", "kind", "catalog_card_id", "market_item_id", "candidates", "reason",
	"previous_price", "proposed_price", "change_percent", "status", "created_at", "updated_at",
}

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// UpsertPending keeps one pending entry per kind and subject. The flag
// reports whether a new row was created rather than refreshed.
func (r *ReviewRepository) UpsertPending(ctx context.Context, entry entity.ReviewEntry) (int64, bool, error) {
	schema, err := fromReview(&entry)
	if err != nil {
		return 0, false, domain.WrapError(err, errcodes.InternalServerError, "failed to encode review candidates")
	}
	schema.CreatedAt = stamp(schema.CreatedAt)
	schema.UpdatedAt = stamp(schema.UpdatedAt)

	query := `
		INSERT INTO match_review_queue (
			kind, catalog_card_id, market_item_id, candidates, reason,
			previous_price, proposed_price, change_percent, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9, $10)
		ON CONFLICT (kind, COALESCE(catalog_card_id, 0), COALESCE(market_item_id, 0))
			WHERE status = 'pending'
		DO UPDATE SET
			candidates = EXCLUDED.candidates,
			reason = EXCLUDED.reason,
			previous_price = EXCLUDED.previous_price,
			proposed_price = EXCLUDED.proposed_price,
			change_percent = EXCLUDED.change_percent,
			updated_at = EXCLUDED.updated_at
		RETURNING id, (xmax = 0) AS inserted`

	var (
		id       int64
		inserted bool
	)
	err = r.db.QueryRowxContext(ctx, query,
		schema.Kind,
		schema.CatalogCardID,
		schema.MarketItemID,
		schema.Candidates,
		schema.Reason,
		schema.PreviousPrice,
		schema.ProposedPrice,
		schema.ChangePercent,
		schema.CreatedAt,
		schema.UpdatedAt,
	).Scan(&id, &inserted)
	if err != nil {
		return 0, false, domain.WrapError(err, errcodes.InternalServerError, "failed to upsert review entry")
	}
	return id, inserted, nil
}

func (r *ReviewRepository) List(ctx context.Context, filter entity.ReviewFilter) ([]entity.ReviewEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultReviewLimit
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reviewColumns...).From("match_review_queue")
	if filter.Status != "" {
		sb.Where(sb.Equal("status", string(filter.Status)))
	}
	if filter.Kind != "" {
		sb.Where(sb.Equal("kind", string(filter.Kind)))
	}
	sb.OrderBy("id").Desc()
	sb.Limit(limit)

	query, args := sb.Build()
	var rows []reviewSchema
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list review entries")
	}

	entries, err := lox.MapErr(rows, func(s reviewSchema) (entity.ReviewEntry, error) { return s.toDomain() })
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to decode review candidates")
	}
	return entries, nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*entity.ReviewEntry, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reviewColumns...).From("match_review_queue").Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row reviewSchema
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(errcodes.NotFound, "review entry not found")
		}
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get review entry")
	}

	entry, err := row.toDomain()
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to decode review candidates")
	}
	return &entry, nil
}
