package pricing

import (
	"cmp"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/service/outlier"
	"card_market/internal/domain/value"
)

// Policy holds the tunable aggregation parameters.
type Policy struct {
	OutlierK            float64
	PrimaryWeight       float64
	SecondaryWeight     float64
	VolatilityThreshold float64
	MinSourceSamples    int
	Priority            []value.Source
	Window              time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		OutlierK:            outlier.DefaultK,
		PrimaryWeight:       0.6,
		SecondaryWeight:     0.4,
		VolatilityThreshold: 30,
		MinSourceSamples:    1,
		Priority:            []value.Source{value.SourceCardmarket, value.SourceEbaySold, value.SourceGradedFeed},
		Window:              30 * 24 * time.Hour,
	}
}

// SourceMedian is the filtered median of one source.
type SourceMedian struct {
	Source  value.Source
	Median  float64
	Samples int
}

// Candidate is the aggregator's proposal for one market item.
type Candidate struct {
	Price       *float64
	Sources     []SourceMedian
	SampleCount int
	Confidence  value.Confidence
	Liquidity   value.Liquidity
	SkipReason  string

	KeptEventIDs    []int64
	OutlierEventIDs []int64
	Graded          []entity.GradedPrice
}

// Aggregate filters, blends and tiers the raw events of one item.
// Events must already be restricted to the item currency and window.
func Aggregate(events []entity.PriceEvent, p Policy) Candidate {
	var c Candidate

	raw, graded := lo.FilterReject(events, func(e entity.PriceEvent, _ int) bool {
		return e.Grade.IsRaw()
	})

	bySource := lo.GroupBy(raw, func(e entity.PriceEvent) value.Source { return e.Source })

	medians := make(map[value.Source]SourceMedian, len(bySource))
	sales := 0

	for source, group := range bySource {
		samples := amounts(group)
		res := outlier.Filter(samples, p.OutlierK)

		for _, i := range res.Dropped {
			c.OutlierEventIDs = append(c.OutlierEventIDs, group[i].ID)
		}

		kept := make([]float64, 0, len(res.Kept))
		for _, i := range res.Kept {
			kept = append(kept, samples[i])
			c.KeptEventIDs = append(c.KeptEventIDs, group[i].ID)
			if group[i].EventType == value.EventTypeSale {
				sales++
			}
		}

		c.SampleCount += len(kept)
		medians[source] = SourceMedian{Source: source, Median: outlier.Median(kept), Samples: len(kept)}
	}

	slices.Sort(c.KeptEventIDs)
	slices.Sort(c.OutlierEventIDs)

	minSamples := max(p.MinSourceSamples, 1)
	for _, source := range p.Priority {
		m, ok := medians[source]
		if !ok || m.Samples < minSamples {
			continue
		}
		c.Sources = append(c.Sources, m)
		if len(c.Sources) == 2 {
			break
		}
	}

	switch len(c.Sources) {
	case 0:
		c.SkipReason = value.SkipReasonInsufficientData
	case 1:
		c.Price = lo.ToPtr(roundPrice(c.Sources[0].Median))
	default:
		blended := Blend(c.Sources[0].Median, c.Sources[1].Median, p.PrimaryWeight, p.SecondaryWeight)
		c.Price = lo.ToPtr(blended)
	}

	c.Confidence = value.ConfidenceFromSamples(c.SampleCount)
	c.Liquidity = value.LiquidityFromSales(sales)
	c.Graded = gradedMedians(graded, p.OutlierK)

	return c
}

// Blend weights two source medians. Weights are normalized to sum to one.
func Blend(primary, secondary, primaryWeight, secondaryWeight float64) float64 {
	total := primaryWeight + secondaryWeight
	if total <= 0 {
		return roundPrice(primary)
	}
	return roundPrice((primary*primaryWeight + secondary*secondaryWeight) / total)
}

func gradedMedians(events []entity.PriceEvent, k float64) []entity.GradedPrice {
	buckets := lo.GroupBy(events, func(e entity.PriceEvent) value.Grade { return e.Grade })

	out := make([]entity.GradedPrice, 0, len(buckets))
	for grade, group := range buckets {
		samples := amounts(group)
		res := outlier.Filter(samples, k)
		kept := lo.Map(res.Kept, func(i int, _ int) float64 { return samples[i] })

		out = append(out, entity.GradedPrice{
			Grader:      grade.Grader,
			Grade:       grade.Value,
			Median:      roundPrice(outlier.Median(kept)),
			SampleCount: len(kept),
		})
	}

	slices.SortFunc(out, func(a, b entity.GradedPrice) int {
		return cmp.Or(cmp.Compare(a.Grader, b.Grader), cmp.Compare(a.Grade, b.Grade))
	})

	return out
}

func amounts(events []entity.PriceEvent) []float64 {
	return lo.Map(events, func(e entity.PriceEvent, _ int) float64 { return e.Amount.InexactFloat64() })
}

func roundPrice(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
