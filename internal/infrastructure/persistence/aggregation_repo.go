package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/pkg/errcodes"
)

const defaultLogLimit = 30

type AggregationLogRepository struct {
	db *sqlx.DB
}

func NewAggregationLogRepository(db *sqlx.DB) *AggregationLogRepository {
	return &AggregationLogRepository{db: db}
}

// Upsert keeps one row per (market_item_id, run_date).
func (r *AggregationLogRepository) Upsert(ctx context.Context, entry entity.AggregationLogEntry) error {
	return upsertAggregationLog(ctx, r.db, entry)
}

func upsertAggregationLog(ctx context.Context, db sqlx.ExtContext, entry entity.AggregationLogEntry) error {
	schema := fromAggregationLog(&entry)
	schema.UpdatedAt = stamp(schema.UpdatedAt)

	query := `
		INSERT INTO aggregation_log (
			market_item_id, run_date, previous_price, new_price, sample_count,
			source_count, outcome, skip_reason, was_updated, updated_at
		) VALUES (
			:market_item_id, :run_date, :previous_price, :new_price, :sample_count,
			:source_count, :outcome, :skip_reason, :was_updated, :updated_at
		)
		ON CONFLICT (market_item_id, run_date) DO UPDATE SET
			previous_price = EXCLUDED.previous_price,
			new_price = EXCLUDED.new_price,
			sample_count = EXCLUDED.sample_count,
			source_count = EXCLUDED.source_count,
			outcome = EXCLUDED.outcome,
			skip_reason = EXCLUDED.skip_reason,
			was_updated = EXCLUDED.was_updated,
			updated_at = EXCLUDED.updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, query, schema); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to upsert aggregation log")
	}
	return nil
}

// ListByItem returns the newest entries first.
func (r *AggregationLogRepository) ListByItem(ctx context.Context, marketItemID int64, limit int) ([]entity.AggregationLogEntry, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}

	query := `
		SELECT id, market_item_id, run_date, previous_price, new_price, sample_count,
			source_count, outcome, skip_reason, was_updated, updated_at
		FROM aggregation_log WHERE market_item_id = $1
		ORDER BY run_date DESC LIMIT $2`

	var rows []aggregationLogSchema
	if err := r.db.SelectContext(ctx, &rows, query, marketItemID, limit); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list aggregation log")
	}
	return lo.Map(rows, func(s aggregationLogSchema, _ int) entity.AggregationLogEntry { return s.toDomain() }), nil
}

type GradedPriceRepository struct {
	db *sqlx.DB
}

func NewGradedPriceRepository(db *sqlx.DB) *GradedPriceRepository {
	return &GradedPriceRepository{db: db}
}

func (r *GradedPriceRepository) Upsert(ctx context.Context, price entity.GradedPrice) error {
	schema := fromGradedPrice(&price)
	schema.UpdatedAt = stamp(schema.UpdatedAt)

	query := `
		INSERT INTO graded_prices (
			market_item_id, grader, grade, run_date, median, sample_count, updated_at
		) VALUES (
			:market_item_id, :grader, :grade, :run_date, :median, :sample_count, :updated_at
		)
		ON CONFLICT (market_item_id, grader, grade, run_date) DO UPDATE SET
			median = EXCLUDED.median,
			sample_count = EXCLUDED.sample_count,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, schema); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to upsert graded price")
	}
	return nil
}

func (r *GradedPriceRepository) ListByItem(ctx context.Context, marketItemID int64) ([]entity.GradedPrice, error) {
	query := `
		SELECT market_item_id, grader, grade, run_date, median, sample_count, updated_at
		FROM graded_prices WHERE market_item_id = $1
		ORDER BY run_date DESC, grader, grade`

	var rows []gradedPriceSchema
	if err := r.db.SelectContext(ctx, &rows, query, marketItemID); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list graded prices")
	}
	return lo.Map(rows, func(s gradedPriceSchema, _ int) entity.GradedPrice { return s.toDomain() }), nil
}
