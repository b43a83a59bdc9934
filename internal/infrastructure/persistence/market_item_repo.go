package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/errcodes"
)

const marketItemSelect = `SELECT id, category, name, set_code, card_number, variant, finish, language,
	currency, normalized_key, current_price, price_24h_ago, price_7d_ago, price_30d_ago,
	change_24h, change_7d, change_30d, liquidity, price_confidence, price_updated_at, updated_at
	FROM market_items`

var marketItemColumns = []string{ //nolint:gochecknoglobals
	"id", "category", "name", "set_code", "card_number", "variant", "finish", "language",
	"currency", "normalized_key", "current_price", "price_24h_ago", "price_7d_ago", "price_30d_ago",
	"change_24h", "change_7d", "change_30d", "liquidity", "price_confidence", "price_updated_at", "updated_at",
}

type MarketItemRepository struct {
	db *sqlx.DB
}

func NewMarketItemRepository(db *sqlx.DB) *MarketItemRepository {
	return &MarketItemRepository{db: db}
}

func toMarketItems(rows []marketItemSchema) []entity.MarketItem {
	return lo.Map(rows, func(s marketItemSchema, _ int) entity.MarketItem { return s.toDomain() })
}

// List returns items ordered by id, starting after filter.AfterID. A zero limit lists the whole category.
func (r *MarketItemRepository) List(ctx context.Context, filter entity.CatalogFilter) ([]entity.MarketItem, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(marketItemColumns...).From("market_items")
	sb.Where(sb.GreaterThan("id", filter.AfterID))
	if filter.Category != "" {
		sb.Where(sb.Equal("category", filter.Category))
	}
	sb.OrderBy("id").Asc()
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}

	query, args := sb.Build()
	var rows []marketItemSchema
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list market items")
	}
	return toMarketItems(rows), nil
}

func (r *MarketItemRepository) GetByID(ctx context.Context, id int64) (*entity.MarketItem, error) {
	var row marketItemSchema
	if err := r.db.GetContext(ctx, &row, marketItemSelect+` WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(errcodes.NotFound, "market item not found")
		}
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get market item")
	}
	item := row.toDomain()
	return &item, nil
}

func (r *MarketItemRepository) FindByNormalizedKey(ctx context.Context, key string) ([]entity.MarketItem, error) {
	if key == "" {
		return nil, nil
	}

	var rows []marketItemSchema
	if err := r.db.SelectContext(ctx, &rows, marketItemSelect+` WHERE normalized_key = $1 ORDER BY id`, key); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to find market items by key")
	}
	return toMarketItems(rows), nil
}

func (r *MarketItemRepository) UpdateNormalizedKey(ctx context.Context, id int64, key string) error {
	query := `UPDATE market_items SET normalized_key = $2, updated_at = $3 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, key, time.Now().UTC())
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to update market item key")
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.NewError(errcodes.NotFound, "market item not found")
	}
	return nil
}

// ApplyPrice is the only writer of current_price. The item row, the
// consumed events and the optional log row change in one transaction.
func (r *MarketItemRepository) ApplyPrice(ctx context.Context, update entity.PriceUpdate) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		now := stamp(update.UpdatedAt)

		query := `
			UPDATE market_items SET
				current_price = $2,
				price_24h_ago = $3,
				price_7d_ago = $4,
				price_30d_ago = $5,
				change_24h = $6,
				change_7d = $7,
				change_30d = $8,
				liquidity = $9,
				price_confidence = $10,
				price_updated_at = $11,
				updated_at = $11
			WHERE id = $1`

		res, err := tx.ExecContext(ctx, query,
			update.MarketItemID,
			update.CurrentPrice,
			update.Price24hAgo,
			update.Price7dAgo,
			update.Price30dAgo,
			update.Change24h,
			update.Change7d,
			update.Change30d,
			string(update.Liquidity),
			string(update.Confidence),
			now,
		)
		if err != nil {
			return domain.WrapError(err, errcodes.InternalServerError, "failed to apply price")
		}

		rows, _ := res.RowsAffected()
		if rows == 0 {
			return domain.NewError(errcodes.NotFound, "market item not found")
		}

		if len(update.EventIDs) > 0 {
			_, err = tx.ExecContext(ctx,
				`UPDATE price_events SET is_processed = TRUE WHERE id = ANY($1) AND matched_market_item_id = $2`,
				update.EventIDs, update.MarketItemID,
			)
			if err != nil {
				return domain.WrapError(err, errcodes.InternalServerError, "failed to mark events processed")
			}
		}

		if update.Log == nil {
			return nil
		}
		return upsertAggregationLog(ctx, tx, *update.Log)
	})
}

func (r *MarketItemRepository) UpdateLiquidity(
	ctx context.Context,
	id int64,
	liquidity value.Liquidity,
	confidence value.Confidence,
) error {
	query := `UPDATE market_items SET liquidity = $2, price_confidence = $3, updated_at = $4 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, string(liquidity), string(confidence), time.Now().UTC())
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to update liquidity")
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.NewError(errcodes.NotFound, "market item not found")
	}
	return nil
}
