package entity

import (
	"time"

	"card_market/internal/domain/value"
)

// CardMap links a catalog card to a market item.
type CardMap struct {
	CatalogCardID int64             `json:"catalog_card_id" db:"catalog_card_id"`
	MarketItemID  int64             `json:"market_item_id" db:"market_item_id"`
	Confidence    float64           `json:"confidence" db:"confidence"`
	MatchMethod   value.MatchMethod `json:"match_method" db:"match_method"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}
