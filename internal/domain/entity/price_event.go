package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"card_market/internal/domain/value"
)

// PriceEvent is one append-only price observation.
// Only IsOutlier, OutlierReason and IsProcessed change after insert.
type PriceEvent struct {
	ID                  int64
	Source              value.Source
	ExternalID          string
	EventType           value.EventType
	Amount              decimal.Decimal
	Currency            string
	Grade               value.Grade
	Title               string
	IsOutlier           bool
	OutlierReason       string
	MatchedMarketItemID int64
	ObservedAt          time.Time
	IngestedAt          time.Time
	IsProcessed         bool
}

// EventWindow selects the events an aggregation run reads for one item.
type EventWindow struct {
	MarketItemID int64
	Currency     string
	Since        time.Time
}

// Listing is the normalized output of a source adapter.
type Listing struct {
	Source        value.Source
	ExternalID    string
	Title         string
	Amount        decimal.Decimal
	Currency      string
	EventType     value.EventType
	ObservedAt    time.Time
	CanonicalKey  string
	Grade         value.Grade
	Excluded      bool
	ExcludeReason string
}

// ToEvent turns a resolved listing into an event bound to the market item.
func (l Listing) ToEvent(marketItemID int64, now time.Time) PriceEvent {
	return PriceEvent{
		Source:              l.Source,
		ExternalID:          l.ExternalID,
		EventType:           l.EventType,
		Amount:              l.Amount,
		Currency:            l.Currency,
		Grade:               l.Grade,
		Title:               l.Title,
		IsOutlier:           l.Excluded,
		OutlierReason:       l.ExcludeReason,
		MatchedMarketItemID: marketItemID,
		ObservedAt:          l.ObservedAt,
		IngestedAt:          now,
	}
}

// UnmatchedItem records a listing that could not be tied to exactly one market item.
type UnmatchedItem struct {
	ID           int64
	Source       value.Source
	ExternalID   string
	Title        string
	CanonicalKey string
	Reason       value.UnmatchedReason
	Amount       decimal.Decimal
	Currency     string
	FirstSeenAt  time.Time
	LastSeenAt   time.Time
	SeenCount    int
}

// SourceQuery describes the card an adapter should look up.
type SourceQuery struct {
	Category      string
	Name          string
	SetCode       string
	CardNumber    string
	Variant       string
	Finish        string
	Language      string
	Currency      string
	NormalizedKey string
	Since         time.Time
}

func QueryFor(item *MarketItem, since time.Time) SourceQuery {
	return SourceQuery{
		Category:      item.Category,
		Name:          item.Name,
		SetCode:       item.SetCode,
		CardNumber:    item.CardNumber,
		Variant:       item.Variant,
		Finish:        item.Finish,
		Language:      item.Language,
		Currency:      item.Currency,
		NormalizedKey: item.NormalizedKey,
		Since:         since,
	}
}
