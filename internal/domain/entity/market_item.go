package entity

import (
	"time"

	"card_market/internal/domain/value"
)

// MarketItem is a tradable listing target whose reference price the pipeline maintains.
type MarketItem struct {
	ID            int64
	Category      string
	Name          string
	SetCode       string
	CardNumber    string
	Variant       string
	Finish        string
	Language      string
	Currency      string
	NormalizedKey string

	CurrentPrice *float64
	Price24hAgo  *float64
	Price7dAgo   *float64
	Price30dAgo  *float64
	Change24h    *float64
	Change7d     *float64
	Change30d    *float64

	Liquidity      value.Liquidity
	Confidence     value.Confidence
	PriceUpdatedAt *time.Time
	UpdatedAt      time.Time
}

// Completeness counts the optional identifying attributes that are filled in.
func (m *MarketItem) Completeness() int {
	n := 0
	for _, s := range []string{m.Variant, m.Finish, m.Language, m.NormalizedKey} {
		if s != "" {
			n++
		}
	}
	return n
}

// PreviousPrice returns the current price or 0 when the item has never been priced.
func (m *MarketItem) PreviousPrice() float64 {
	if m.CurrentPrice == nil {
		return 0
	}
	return *m.CurrentPrice
}

// PriceUpdate is the full set of columns written when a price is applied.
type PriceUpdate struct {
	MarketItemID int64
	CurrentPrice float64
	Price24hAgo  *float64
	Price7dAgo   *float64
	Price30dAgo  *float64
	Change24h    *float64
	Change7d     *float64
	Change30d    *float64
	Liquidity    value.Liquidity
	Confidence   value.Confidence
	EventIDs     []int64
	UpdatedAt    time.Time

	// Log is written in the same transaction as the price.
	Log *AggregationLogEntry
}
