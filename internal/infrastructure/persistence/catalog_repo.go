package persistence

import (
	"context"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/pkg/errcodes"
)

var catalogCardColumns = []string{ //nolint:gochecknoglobals
	"id", "game", "set_code", "card_number", "variant", "finish",
	"language", "name", "normalized_key", "canonical_key", "updated_at",
}

type CatalogCardRepository struct {
	db *sqlx.DB
}

func NewCatalogCardRepository(db *sqlx.DB) *CatalogCardRepository {
	return &CatalogCardRepository{db: db}
}

// List returns cards ordered by id, starting after filter.AfterID.
func (r *CatalogCardRepository) List(ctx context.Context, filter entity.CatalogFilter) ([]entity.CatalogCard, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(catalogCardColumns...).From("catalog_cards")
	sb.Where(sb.GreaterThan("id", filter.AfterID))
	if filter.Category != "" {
		sb.Where(sb.Equal("game", filter.Category))
	}
	sb.OrderBy("id").Asc()
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}

	query, args := sb.Build()
	var cards []entity.CatalogCard
	if err := r.db.SelectContext(ctx, &cards, query, args...); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list catalog cards")
	}
	return cards, nil
}

func (r *CatalogCardRepository) UpdateNormalizedKey(ctx context.Context, id int64, key string) error {
	query := `UPDATE catalog_cards SET normalized_key = $2, updated_at = $3 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, key, time.Now().UTC())
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to update catalog card key")
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.NewError(errcodes.NotFound, "catalog card not found")
	}
	return nil
}
