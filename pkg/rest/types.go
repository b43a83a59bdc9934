// Package rest holds the JSON shapes of the HTTP API.
package rest

import "time"

type RunRequest struct {
	Stage    string `json:"stage" validate:"required,oneof=keys ingest match aggregate"`
	Category string `json:"category,omitempty" validate:"omitempty,max=64"`
	Limit    int    `json:"limit,omitempty" validate:"gte=0,lte=100000"`
	Force    bool   `json:"force,omitempty"`
}

type RunAccepted struct {
	TaskID string `json:"taskId"`
	Stage  string `json:"stage"`
}

type RunSummary struct {
	RunID        string         `json:"runId"`
	Stage        string         `json:"stage"`
	Category     string         `json:"category,omitempty"`
	Limit        int            `json:"limit,omitempty"`
	Force        bool           `json:"force,omitempty"`
	StartedAt    time.Time      `json:"startedAt"`
	FinishedAt   *time.Time     `json:"finishedAt,omitempty"`
	Counters     map[string]int `json:"counters"`
	Errors       int            `json:"errors"`
	ErrorsByCode map[string]int `json:"errorsByCode,omitempty"`
	Messages     []string       `json:"messages,omitempty"`
}

type ReviewCandidate struct {
	MarketItemID int64   `json:"marketItemId"`
	Score        float64 `json:"score"`
	Completeness int     `json:"completeness"`
}

type Review struct {
	ID            int64             `json:"id"`
	Kind          string            `json:"kind"`
	Status        string            `json:"status"`
	CatalogCardID *int64            `json:"catalogCardId,omitempty"`
	MarketItemID  *int64            `json:"marketItemId,omitempty"`
	Candidates    []ReviewCandidate `json:"candidates"`
	Reason        string            `json:"reason"`
	PreviousPrice *float64          `json:"previousPrice,omitempty"`
	ProposedPrice *float64          `json:"proposedPrice,omitempty"`
	ChangePercent *float64          `json:"changePercent,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

type AggregationLogEntry struct {
	RunDate       string   `json:"runDate"`
	Outcome       string   `json:"outcome"`
	PreviousPrice *float64 `json:"previousPrice,omitempty"`
	NewPrice      *float64 `json:"newPrice,omitempty"`
	SampleCount   int      `json:"sampleCount"`
	SourceCount   int      `json:"sourceCount"`
	SkipReason    string   `json:"skipReason,omitempty"`
	WasUpdated    bool     `json:"wasUpdated"`
}

type GradedPrice struct {
	Grader      string  `json:"grader"`
	Grade       string  `json:"grade"`
	RunDate     string  `json:"runDate"`
	Median      float64 `json:"median"`
	SampleCount int     `json:"sampleCount"`
}

type CardMapping struct {
	MarketItemID int64     `json:"marketItemId"`
	Confidence   float64   `json:"confidence"`
	MatchMethod  string    `json:"matchMethod"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type UnmatchedListing struct {
	Source       string    `json:"source"`
	ExternalID   string    `json:"externalId"`
	Title        string    `json:"title"`
	CanonicalKey string    `json:"canonicalKey,omitempty"`
	Reason       string    `json:"reason"`
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	SeenCount    int       `json:"seenCount"`
	FirstSeenAt  time.Time `json:"firstSeenAt"`
	LastSeenAt   time.Time `json:"lastSeenAt"`
}

type List[T any] struct {
	Items []T `json:"items"`
}

// Error is the body of every non-2xx reply.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	SupportID string    `json:"supportId"`
}

type ErrorCode string
