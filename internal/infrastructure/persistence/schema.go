package persistence

import (
	"database/sql"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

// marketItemSchema is a market_items row.
type marketItemSchema struct {
	ID             int64      `db:"id"`
	Category       string     `db:"category"`
	Name           string     `db:"name"`
	SetCode        string     `db:"set_code"`
	CardNumber     string     `db:"card_number"`
	Variant        string     `db:"variant"`
	Finish         string     `db:"finish"`
	Language       string     `db:"language"`
	Currency       string     `db:"currency"`
	NormalizedKey  string     `db:"normalized_key"`
	CurrentPrice   *float64   `db:"current_price"`
	Price24hAgo    *float64   `db:"price_24h_ago"`
	Price7dAgo     *float64   `db:"price_7d_ago"`
	Price30dAgo    *float64   `db:"price_30d_ago"`
	Change24h      *float64   `db:"change_24h"`
	Change7d       *float64   `db:"change_7d"`
	Change30d      *float64   `db:"change_30d"`
	Liquidity      string     `db:"liquidity"`
	Confidence     string     `db:"price_confidence"`
	PriceUpdatedAt *time.Time `db:"price_updated_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (s *marketItemSchema) toDomain() entity.MarketItem {
	return entity.MarketItem{
		ID:             s.ID,
		Category:       s.Category,
		Name:           s.Name,
		SetCode:        s.SetCode,
		CardNumber:     s.CardNumber,
		Variant:        s.Variant,
		Finish:         s.Finish,
		Language:       s.Language,
		Currency:       s.Currency,
		NormalizedKey:  s.NormalizedKey,
		CurrentPrice:   s.CurrentPrice,
		Price24hAgo:    s.Price24hAgo,
		Price7dAgo:     s.Price7dAgo,
		Price30dAgo:    s.Price30dAgo,
		Change24h:      s.Change24h,
		Change7d:       s.Change7d,
		Change30d:      s.Change30d,
		Liquidity:      value.Liquidity(s.Liquidity),
		Confidence:     value.Confidence(s.Confidence),
		PriceUpdatedAt: s.PriceUpdatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// priceEventSchema is a price_events row.
type priceEventSchema struct {
	ID                  int64           `db:"id"`
	Source              string          `db:"source"`
	ExternalID          string          `db:"external_id"`
	EventType           string          `db:"event_type"`
	Amount              decimal.Decimal `db:"amount"`
	Currency            string          `db:"currency"`
	Grader              string          `db:"grader"`
	Grade               string          `db:"grade"`
	Title               string          `db:"title"`
	IsOutlier           bool            `db:"is_outlier"`
	OutlierReason       string          `db:"outlier_reason"`
	MatchedMarketItemID int64           `db:"matched_market_item_id"`
	ObservedAt          time.Time       `db:"observed_at"`
	IngestedAt          time.Time       `db:"ingested_at"`
	IsProcessed         bool            `db:"is_processed"`
}

func fromPriceEvent(e *entity.PriceEvent) priceEventSchema {
	return priceEventSchema{
		ID:                  e.ID,
		Source:              e.Source.String(),
		ExternalID:          e.ExternalID,
		EventType:           string(e.EventType),
		Amount:              e.Amount,
		Currency:            e.Currency,
		Grader:              e.Grade.Grader,
		Grade:               e.Grade.Value,
		Title:               e.Title,
		IsOutlier:           e.IsOutlier,
		OutlierReason:       e.OutlierReason,
		MatchedMarketItemID: e.MatchedMarketItemID,
		ObservedAt:          e.ObservedAt,
		IngestedAt:          e.IngestedAt,
		IsProcessed:         e.IsProcessed,
	}
}

func (s *priceEventSchema) toDomain() entity.PriceEvent {
	return entity.PriceEvent{
		ID:                  s.ID,
		Source:              value.Source(s.Source),
		ExternalID:          s.ExternalID,
		EventType:           value.EventType(s.EventType),
		Amount:              s.Amount,
		Currency:            s.Currency,
		Grade:               value.Grade{Grader: s.Grader, Value: s.Grade},
		Title:               s.Title,
		IsOutlier:           s.IsOutlier,
		OutlierReason:       s.OutlierReason,
		MatchedMarketItemID: s.MatchedMarketItemID,
		ObservedAt:          s.ObservedAt,
		IngestedAt:          s.IngestedAt,
		IsProcessed:         s.IsProcessed,
	}
}

// unmatchedSchema is an unmatched_items row.
type unmatchedSchema struct {
	ID           int64           `db:"id"`
	Source       string          `db:"source"`
	ExternalID   string          `db:"external_id"`
	Title        string          `db:"title"`
	CanonicalKey sql.NullString  `db:"canonical_key"`
	Reason       string          `db:"reason"`
	Amount       decimal.Decimal `db:"amount"`
	Currency     string          `db:"currency"`
	FirstSeenAt  time.Time       `db:"first_seen_at"`
	LastSeenAt   time.Time       `db:"last_seen_at"`
	SeenCount    int             `db:"seen_count"`
}

func fromUnmatched(u *entity.UnmatchedItem) unmatchedSchema {
	return unmatchedSchema{
		ID:           u.ID,
		Source:       u.Source.String(),
		ExternalID:   u.ExternalID,
		Title:        u.Title,
		CanonicalKey: sql.NullString{String: u.CanonicalKey, Valid: u.CanonicalKey != ""},
		Reason:       string(u.Reason),
		Amount:       u.Amount,
		Currency:     u.Currency,
		FirstSeenAt:  u.FirstSeenAt,
		LastSeenAt:   u.LastSeenAt,
		SeenCount:    u.SeenCount,
	}
}

func (s *unmatchedSchema) toDomain() entity.UnmatchedItem {
	return entity.UnmatchedItem{
		ID:           s.ID,
		Source:       value.Source(s.Source),
		ExternalID:   s.ExternalID,
		Title:        s.Title,
		CanonicalKey: s.CanonicalKey.String,
		Reason:       value.UnmatchedReason(s.Reason),
		Amount:       s.Amount,
		Currency:     s.Currency,
		FirstSeenAt:  s.FirstSeenAt,
		LastSeenAt:   s.LastSeenAt,
		SeenCount:    s.SeenCount,
	}
}

// reviewSchema is a match_review_queue row. Candidates are stored as JSONB.
type reviewSchema struct {
	ID            int64     `db:"id"`
	Kind          string    `db:"kind"`
	CatalogCardID *int64    `db:"catalog_card_id"`
	MarketItemID  *int64    `db:"market_item_id"`
	Candidates    []byte    `db:"candidates"`
	Reason        string    `db:"reason"`
	PreviousPrice *float64  `db:"previous_price"`
	ProposedPrice *float64  `db:"proposed_price"`
	ChangePercent *float64  `db:"change_percent"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func fromReview(e *entity.ReviewEntry) (reviewSchema, error) {
	candidates := e.Candidates
	if candidates == nil {
		candidates = []entity.ReviewCandidate{}
	}

	raw, err := json.Marshal(candidates)
	if err != nil {
		return reviewSchema{}, err
	}

	status := e.Status
	if status == "" {
		status = value.ReviewStatusPending
	}

	return reviewSchema{
		ID:            e.ID,
		Kind:          string(e.Kind),
		CatalogCardID: e.CatalogCardID,
		MarketItemID:  e.MarketItemID,
		Candidates:    raw,
		Reason:        e.Reason,
		PreviousPrice: e.PreviousPrice,
		ProposedPrice: e.ProposedPrice,
		ChangePercent: e.ChangePercent,
		Status:        string(status),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}, nil
}

func (s *reviewSchema) toDomain() (entity.ReviewEntry, error) {
	var candidates []entity.ReviewCandidate
	if len(s.Candidates) > 0 {
		if err := json.Unmarshal(s.Candidates, &candidates); err != nil {
			return entity.ReviewEntry{}, err
		}
	}

	return entity.ReviewEntry{
		ID:            s.ID,
		Kind:          value.ReviewKind(s.Kind),
		CatalogCardID: s.CatalogCardID,
		MarketItemID:  s.MarketItemID,
		Candidates:    candidates,
		Reason:        s.Reason,
		PreviousPrice: s.PreviousPrice,
		ProposedPrice: s.ProposedPrice,
		ChangePercent: s.ChangePercent,
		Status:        value.ReviewStatus(s.Status),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}, nil
}

// aggregationLogSchema is an aggregation_log row.
type aggregationLogSchema struct {
	ID            int64     `db:"id"`
	MarketItemID  int64     `db:"market_item_id"`
	RunDate       time.Time `db:"run_date"`
	PreviousPrice *float64  `db:"previous_price"`
	NewPrice      *float64  `db:"new_price"`
	SampleCount   int       `db:"sample_count"`
	SourceCount   int       `db:"source_count"`
	Outcome       string    `db:"outcome"`
	SkipReason    string    `db:"skip_reason"`
	WasUpdated    bool      `db:"was_updated"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func fromAggregationLog(e *entity.AggregationLogEntry) aggregationLogSchema {
	return aggregationLogSchema{
		ID:            e.ID,
		MarketItemID:  e.MarketItemID,
		RunDate:       entity.RunDate(e.RunDate),
		PreviousPrice: e.PreviousPrice,
		NewPrice:      e.NewPrice,
		SampleCount:   e.SampleCount,
		SourceCount:   e.SourceCount,
		Outcome:       string(e.Outcome),
		SkipReason:    e.SkipReason,
		WasUpdated:    e.WasUpdated,
		UpdatedAt:     e.UpdatedAt,
	}
}

func (s *aggregationLogSchema) toDomain() entity.AggregationLogEntry {
	return entity.AggregationLogEntry{
		ID:            s.ID,
		MarketItemID:  s.MarketItemID,
		RunDate:       s.RunDate,
		PreviousPrice: s.PreviousPrice,
		NewPrice:      s.NewPrice,
		SampleCount:   s.SampleCount,
		SourceCount:   s.SourceCount,
		Outcome:       value.Outcome(s.Outcome),
		SkipReason:    s.SkipReason,
		WasUpdated:    s.WasUpdated,
		UpdatedAt:     s.UpdatedAt,
	}
}

// gradedPriceSchema is a graded_prices row.
type gradedPriceSchema struct {
	MarketItemID int64     `db:"market_item_id"`
	Grader       string    `db:"grader"`
	Grade        string    `db:"grade"`
	RunDate      time.Time `db:"run_date"`
	Median       float64   `db:"median"`
	SampleCount  int       `db:"sample_count"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func fromGradedPrice(p *entity.GradedPrice) gradedPriceSchema {
	return gradedPriceSchema{
		MarketItemID: p.MarketItemID,
		Grader:       p.Grader,
		Grade:        p.Grade,
		RunDate:      entity.RunDate(p.RunDate),
		Median:       p.Median,
		SampleCount:  p.SampleCount,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (s *gradedPriceSchema) toDomain() entity.GradedPrice {
	return entity.GradedPrice{
		MarketItemID: s.MarketItemID,
		Grader:       s.Grader,
		Grade:        s.Grade,
		RunDate:      s.RunDate,
		Median:       s.Median,
		SampleCount:  s.SampleCount,
		UpdatedAt:    s.UpdatedAt,
	}
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
