package entity

import (
	"time"

	"card_market/internal/domain/value"
)

const MaxReviewCandidates = 5

// ReviewCandidate is one ranked option shown to the reviewer.
type ReviewCandidate struct {
	MarketItemID int64   `json:"market_item_id"`
	Score        float64 `json:"score"`
	Completeness int     `json:"completeness"`
}

// ReviewEntry is a case the pipeline refused to decide on its own.
// At most one pending entry exists per kind and subject.
type ReviewEntry struct {
	ID            int64
	Kind          value.ReviewKind
	CatalogCardID *int64
	MarketItemID  *int64
	Candidates    []ReviewCandidate
	Reason        string
	PreviousPrice *float64
	ProposedPrice *float64
	ChangePercent *float64
	Status        value.ReviewStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ReviewFilter struct {
	Status value.ReviewStatus
	Kind   value.ReviewKind
	Limit  int
}
