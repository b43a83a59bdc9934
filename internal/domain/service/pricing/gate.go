package pricing

import (
	"math"
	"time"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
)

// GateDecision is the volatility gate verdict for a candidate price.
type GateDecision struct {
	Outcome       value.Outcome
	ChangePercent *float64
}

// Gate decides whether a candidate may overwrite the stored price.
// Large moves on thin liquidity are held for review unless forced.
// A first price (previous 0) is never held.
func Gate(previous float64, proposed *float64, liquidity value.Liquidity, threshold float64, force bool) GateDecision {
	if proposed == nil || *proposed <= 0 {
		return GateDecision{Outcome: value.OutcomeSkipped}
	}

	change := ChangePercent(*proposed, &previous)

	if previous > 0 && change != nil && math.Abs(*change) > threshold && liquidity.IsThin() && !force {
		return GateDecision{Outcome: value.OutcomeGated, ChangePercent: change}
	}

	return GateDecision{Outcome: value.OutcomeApplied, ChangePercent: change}
}

// ChangePercent returns the percent move from base to current, or nil when
// base is unknown or zero.
func ChangePercent(current float64, base *float64) *float64 {
	if base == nil || *base == 0 {
		return nil
	}
	pct := roundPrice((current - *base) / *base * 100)
	return &pct
}

// Cascade shifts the price snapshots and recomputes changes for a new price.
// A second apply on the same run date keeps the snapshots already shifted that day.
func Cascade(item *entity.MarketItem, price float64, c Candidate, now time.Time) entity.PriceUpdate {
	upd := entity.PriceUpdate{
		MarketItemID: item.ID,
		CurrentPrice: price,
		Price24hAgo:  item.CurrentPrice,
		Price7dAgo:   item.Price24hAgo,
		Price30dAgo:  item.Price7dAgo,
		Liquidity:    c.Liquidity,
		Confidence:   c.Confidence,
		EventIDs:     c.KeptEventIDs,
		UpdatedAt:    now,
	}

	if item.PriceUpdatedAt != nil && entity.RunDate(*item.PriceUpdatedAt).Equal(entity.RunDate(now)) {
		upd.Price24hAgo = item.Price24hAgo
		upd.Price7dAgo = item.Price7dAgo
		upd.Price30dAgo = item.Price30dAgo
	}

	upd.Change24h = ChangePercent(price, upd.Price24hAgo)
	upd.Change7d = ChangePercent(price, upd.Price7dAgo)
	upd.Change30d = ChangePercent(price, upd.Price30dAgo)

	return upd
}
