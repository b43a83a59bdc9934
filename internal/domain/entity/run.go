package entity

import (
	"fmt"
	"sync"
	"time"

	"card_market/internal/domain"
	"card_market/internal/domain/value"
)

const maxSummaryMessages = 50

// RunOptions is the whole control surface of a stage run.
type RunOptions struct {
	Category string `json:"category,omitempty" validate:"omitempty,max=64"`
	Limit    int    `json:"limit,omitempty" validate:"gte=0,lte=100000"`
	Force    bool   `json:"force,omitempty"`
}

func (o RunOptions) Filter() CatalogFilter {
	return CatalogFilter{Category: o.Category, Limit: o.Limit}
}

// RunSummary accumulates counters and errors of one stage run.
// It is safe for concurrent use.
type RunSummary struct {
	mu sync.Mutex

	RunID      string      `json:"run_id"`
	Stage      value.Stage `json:"stage"`
	Options    RunOptions  `json:"options"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at,omitempty"`

	Processed  int `json:"processed"`
	Mapped     int `json:"mapped"`
	Queued     int `json:"queued"`
	Unmatched  int `json:"unmatched"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Excluded   int `json:"excluded"`
	Updated    int `json:"updated"`
	Applied    int `json:"applied"`
	Gated      int `json:"gated"`
	Skipped    int `json:"skipped"`
	Errors     int `json:"errors"`

	ErrorsByCode map[string]int `json:"errors_by_code,omitempty"`
	Messages     []string       `json:"messages,omitempty"`
}

func NewRunSummary(runID string, stage value.Stage, opts RunOptions, now time.Time) *RunSummary {
	return &RunSummary{
		RunID:        runID,
		Stage:        stage,
		Options:      opts,
		StartedAt:    now,
		ErrorsByCode: make(map[string]int),
	}
}

// Track applies fn to the summary under its lock.
func (s *RunSummary) Track(fn func(s *RunSummary)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// RecordError counts err by its domain code and keeps its message while there is room.
func (s *RunSummary) RecordError(subject string, err error) {
	if err == nil {
		return
	}

	code := "Unknown"
	if c, ok := domain.GetCode(err); ok {
		code = c.String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.Errors++
	if s.ErrorsByCode == nil {
		s.ErrorsByCode = make(map[string]int)
	}
	s.ErrorsByCode[code]++

	if len(s.Messages) < maxSummaryMessages {
		s.Messages = append(s.Messages, fmt.Sprintf("%s: %s", subject, err.Error()))
	}
}

func (s *RunSummary) Finish(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FinishedAt = now
}
