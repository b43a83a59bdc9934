package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/pkg/errcodes"
)

type CardMapRepository struct {
	db *sqlx.DB
}

func NewCardMapRepository(db *sqlx.DB) *CardMapRepository {
	return &CardMapRepository{db: db}
}

// Upsert writes the mapping on its (catalog_card_id, market_item_id) key.
func (r *CardMapRepository) Upsert(ctx context.Context, m entity.CardMap) error {
	m.CreatedAt = stamp(m.CreatedAt)
	m.UpdatedAt = stamp(m.UpdatedAt)

	query := `
		INSERT INTO catalog_card_map (
			catalog_card_id, market_item_id, confidence, match_method, created_at, updated_at
		) VALUES (
			:catalog_card_id, :market_item_id, :confidence, :match_method, :created_at, :updated_at
		)
		ON CONFLICT (catalog_card_id, market_item_id) DO UPDATE SET
			confidence = EXCLUDED.confidence,
			match_method = EXCLUDED.match_method,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to upsert card map")
	}
	return nil
}

func (r *CardMapRepository) ListByCard(ctx context.Context, catalogCardID int64) ([]entity.CardMap, error) {
	query := `
		SELECT catalog_card_id, market_item_id, confidence, match_method, created_at, updated_at
		FROM catalog_card_map WHERE catalog_card_id = $1 ORDER BY market_item_id`

	var maps []entity.CardMap
	if err := r.db.SelectContext(ctx, &maps, query, catalogCardID); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list card maps")
	}
	return maps, nil
}
