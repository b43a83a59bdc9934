package persistence

import (
	"context"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/errcodes"
)

var priceEventColumns = []string{ //nolint:gochecknoglobals
	"id", "source", "external_id", "event_type", "amount", "currency", "grader", "grade", "title",
	"is_outlier", "outlier_reason", "matched_market_item_id", "observed_at", "ingested_at", "is_processed",
}

type PriceEventRepository struct {
	db *sqlx.DB
}

func NewPriceEventRepository(db *sqlx.DB) *PriceEventRepository {
	return &PriceEventRepository{db: db}
}

// Insert appends the event. It reports false when (source, external_id) already exists.
func (r *PriceEventRepository) Insert(ctx context.Context, event entity.PriceEvent) (bool, error) {
	schema := fromPriceEvent(&event)
	schema.IngestedAt = stamp(schema.IngestedAt)

	query := `
		INSERT INTO price_events (
			source, external_id, event_type, amount, currency, grader, grade, title,
			is_outlier, outlier_reason, matched_market_item_id, observed_at, ingested_at, is_processed
		) VALUES (
			:source, :external_id, :event_type, :amount, :currency, :grader, :grade, :title,
			:is_outlier, :outlier_reason, :matched_market_item_id, :observed_at, :ingested_at, :is_processed
		)
		ON CONFLICT (source, external_id) DO NOTHING`

	res, err := r.db.NamedExecContext(ctx, query, schema)
	if err != nil {
		return false, domain.WrapError(err, errcodes.InternalServerError, "failed to insert price event")
	}

	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// ListWindow returns the events of one item observed since window.Since.
// Events flagged at ingestion are left out. MAD flags are recomputed by every
// run, so those events stay in, as do processed ones.
func (r *PriceEventRepository) ListWindow(ctx context.Context, window entity.EventWindow) ([]entity.PriceEvent, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(priceEventColumns...).From("price_events")
	sb.Where(
		sb.Equal("matched_market_item_id", window.MarketItemID),
		sb.Or(
			sb.Equal("is_outlier", false),
			sb.Equal("outlier_reason", value.OutlierReasonMAD),
		),
		sb.GreaterEqualThan("observed_at", window.Since),
	)
	if window.Currency != "" {
		sb.Where(sb.Equal("currency", window.Currency))
	}
	sb.OrderBy("id").Asc()

	query, args := sb.Build()
	var rows []priceEventSchema
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list price events")
	}
	return lo.Map(rows, func(s priceEventSchema, _ int) entity.PriceEvent { return s.toDomain() }), nil
}

// MarkOutliers flags the events. Flag changes and is_processed are the only
// updates an event ever sees.
func (r *PriceEventRepository) MarkOutliers(ctx context.Context, ids []int64, reason string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE price_events SET is_outlier = TRUE, outlier_reason = $2 WHERE id = ANY($1)`
	if _, err := r.db.ExecContext(ctx, query, ids, reason); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to flag outliers")
	}
	return nil
}

// ClearOutliers lifts the flag from events that carry the given reason.
// Flags with another reason are left alone.
func (r *PriceEventRepository) ClearOutliers(ctx context.Context, ids []int64, reason string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE price_events SET is_outlier = FALSE, outlier_reason = '' WHERE id = ANY($1) AND outlier_reason = $2`
	if _, err := r.db.ExecContext(ctx, query, ids, reason); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to clear outliers")
	}
	return nil
}
