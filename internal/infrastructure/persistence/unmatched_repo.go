package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/pkg/errcodes"
)

type UnmatchedRepository struct {
	db *sqlx.DB
}

func NewUnmatchedRepository(db *sqlx.DB) *UnmatchedRepository {
	return &UnmatchedRepository{db: db}
}

// Upsert records a sighting. Repeat sightings bump seen_count and last_seen_at.
func (r *UnmatchedRepository) Upsert(ctx context.Context, item entity.UnmatchedItem) error {
	schema := fromUnmatched(&item)
	schema.FirstSeenAt = stamp(schema.FirstSeenAt)
	schema.LastSeenAt = stamp(schema.LastSeenAt)

	query := `
		INSERT INTO unmatched_items (
			source, external_id, title, canonical_key, reason, amount, currency,
			first_seen_at, last_seen_at, seen_count
		) VALUES (
			:source, :external_id, :title, :canonical_key, :reason, :amount, :currency,
			:first_seen_at, :last_seen_at, 1
		)
		ON CONFLICT (source, external_id) DO UPDATE SET
			title = EXCLUDED.title,
			canonical_key = EXCLUDED.canonical_key,
			reason = EXCLUDED.reason,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			last_seen_at = EXCLUDED.last_seen_at,
			seen_count = unmatched_items.seen_count + 1`

	if _, err := r.db.NamedExecContext(ctx, query, schema); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to upsert unmatched item")
	}
	return nil
}

func (r *UnmatchedRepository) List(ctx context.Context, limit int) ([]entity.UnmatchedItem, error) {
	query := `
		SELECT id, source, external_id, title, canonical_key, reason, amount, currency,
			first_seen_at, last_seen_at, seen_count
		FROM unmatched_items ORDER BY last_seen_at DESC, id DESC LIMIT $1`

	var rows []unmatchedSchema
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list unmatched items")
	}
	return lo.Map(rows, func(s unmatchedSchema, _ int) entity.UnmatchedItem { return s.toDomain() }), nil
}
