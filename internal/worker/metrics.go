package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"card_market/internal/domain/entity"
)

var (
	runsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Namespace: "card_market",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Stage runs by stage and status.",
		},
		[]string{"stage", "status"},
	)

	runDuration = promauto.NewHistogramVec( //nolint:gochecknoglobals
		prometheus.HistogramOpts{
			Namespace: "card_market",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Stage run duration in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"stage"},
	)

	unitsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Namespace: "card_market",
			Subsystem: "pipeline",
			Name:      "units_total",
			Help:      "Units handled by stage runs, by counter.",
		},
		[]string{"stage", "counter"},
	)
)

func observeSummary(s *entity.RunSummary) {
	stage := s.Stage.String()

	s.Track(func(rs *entity.RunSummary) {
		counters := map[string]int{
			"processed":  rs.Processed,
			"mapped":     rs.Mapped,
			"queued":     rs.Queued,
			"unmatched":  rs.Unmatched,
			"inserted":   rs.Inserted,
			"duplicates": rs.Duplicates,
			"excluded":   rs.Excluded,
			"updated":    rs.Updated,
			"applied":    rs.Applied,
			"gated":      rs.Gated,
			"skipped":    rs.Skipped,
			"errors":     rs.Errors,
		}
		for name, n := range counters {
			if n > 0 {
				unitsTotal.WithLabelValues(stage, name).Add(float64(n))
			}
		}

		if !rs.FinishedAt.IsZero() {
			runDuration.WithLabelValues(stage).Observe(rs.FinishedAt.Sub(rs.StartedAt).Seconds())
		}
	})
}
