package entity

import (
	"time"

	"card_market/internal/domain/value"
)

// AggregationLogEntry is the per-item, per-day audit row of an aggregation run.
type AggregationLogEntry struct {
	ID            int64
	MarketItemID  int64
	RunDate       time.Time
	PreviousPrice *float64
	NewPrice      *float64
	SampleCount   int
	SourceCount   int
	Outcome       value.Outcome
	SkipReason    string
	WasUpdated    bool
	UpdatedAt     time.Time
}

// GradedPrice is the daily median of one graded bucket. It never feeds CurrentPrice.
type GradedPrice struct {
	MarketItemID int64
	Grader       string
	Grade        string
	RunDate      time.Time
	Median       float64
	SampleCount  int
	UpdatedAt    time.Time
}

// RunDate truncates t to the UTC day used as the aggregation log key.
func RunDate(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
