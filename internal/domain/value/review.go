package value

import "fmt"

type ReviewKind string

const (
	ReviewKindAmbiguousMatch ReviewKind = "ambiguous_match"
	ReviewKindVolatilityGate ReviewKind = "volatility_gate"
)

type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusResolved ReviewStatus = "resolved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

func ParseReviewStatus(s string) (ReviewStatus, error) {
	switch status := ReviewStatus(s); status {
	case ReviewStatusPending, ReviewStatusResolved, ReviewStatusRejected:
		return status, nil
	default:
		return "", fmt.Errorf("unknown review status %q", s)
	}
}

// Outcome is the terminal state of one item in an aggregation run.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeGated   Outcome = "gated"
	OutcomeSkipped Outcome = "skipped"
)

const (
	SkipReasonInsufficientData = "insufficient_data"
	OutlierReasonMAD           = "mad"
	OutlierReasonInvalidAmount = "invalid_amount"
)
