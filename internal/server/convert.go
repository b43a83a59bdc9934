package server

import (
	"github.com/samber/lo"

	"card_market/internal/domain/entity"
	"card_market/pkg/rest"
)

const dateLayout = "2006-01-02"

func newRESTRunSummary(s *entity.RunSummary) rest.RunSummary {
	out := rest.RunSummary{
		RunID:     s.RunID,
		Stage:     s.Stage.String(),
		Category:  s.Options.Category,
		Limit:     s.Options.Limit,
		Force:     s.Options.Force,
		StartedAt: s.StartedAt,
		Counters: map[string]int{
			"processed":  s.Processed,
			"mapped":     s.Mapped,
			"queued":     s.Queued,
			"unmatched":  s.Unmatched,
			"inserted":   s.Inserted,
			"duplicates": s.Duplicates,
			"excluded":   s.Excluded,
			"updated":    s.Updated,
			"applied":    s.Applied,
			"gated":      s.Gated,
			"skipped":    s.Skipped,
		},
		Errors:       s.Errors,
		ErrorsByCode: s.ErrorsByCode,
		Messages:     s.Messages,
	}
	if !s.FinishedAt.IsZero() {
		out.FinishedAt = lo.ToPtr(s.FinishedAt)
	}
	return out
}

func newRESTReview(e entity.ReviewEntry) rest.Review {
	return rest.Review{
		ID:            e.ID,
		Kind:          string(e.Kind),
		Status:        string(e.Status),
		CatalogCardID: e.CatalogCardID,
		MarketItemID:  e.MarketItemID,
		Candidates: lo.Map(e.Candidates, func(c entity.ReviewCandidate, _ int) rest.ReviewCandidate {
			return rest.ReviewCandidate{MarketItemID: c.MarketItemID, Score: c.Score, Completeness: c.Completeness}
		}),
		Reason:        e.Reason,
		PreviousPrice: e.PreviousPrice,
		ProposedPrice: e.ProposedPrice,
		ChangePercent: e.ChangePercent,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func newRESTAggregationLogEntry(e entity.AggregationLogEntry) rest.AggregationLogEntry {
	return rest.AggregationLogEntry{
		RunDate:       e.RunDate.Format(dateLayout),
		Outcome:       string(e.Outcome),
		PreviousPrice: e.PreviousPrice,
		NewPrice:      e.NewPrice,
		SampleCount:   e.SampleCount,
		SourceCount:   e.SourceCount,
		SkipReason:    e.SkipReason,
		WasUpdated:    e.WasUpdated,
	}
}

func newRESTGradedPrice(p entity.GradedPrice) rest.GradedPrice {
	return rest.GradedPrice{
		Grader:      p.Grader,
		Grade:       p.Grade,
		RunDate:     p.RunDate.Format(dateLayout),
		Median:      p.Median,
		SampleCount: p.SampleCount,
	}
}

func newRESTCardMapping(m entity.CardMap) rest.CardMapping {
	return rest.CardMapping{
		MarketItemID: m.MarketItemID,
		Confidence:   m.Confidence,
		MatchMethod:  string(m.MatchMethod),
		UpdatedAt:    m.UpdatedAt,
	}
}

func newRESTUnmatchedListing(u entity.UnmatchedItem) rest.UnmatchedListing {
	return rest.UnmatchedListing{
		Source:       u.Source.String(),
		ExternalID:   u.ExternalID,
		Title:        u.Title,
		CanonicalKey: u.CanonicalKey,
		Reason:       string(u.Reason),
		Amount:       u.Amount.String(),
		Currency:     u.Currency,
		SeenCount:    u.SeenCount,
		FirstSeenAt:  u.FirstSeenAt,
		LastSeenAt:   u.LastSeenAt,
	}
}
