package config

import (
	"errors"
	"fmt"
	"time"
)

// Pipeline carries the tunable policy of the price pipeline. Blend weights
// and the volatility threshold are policy, not invariants.
type Pipeline struct {
	Window              time.Duration `env:"PIPELINE_WINDOW" envDefault:"720h"`
	OutlierK            float64       `env:"PIPELINE_OUTLIER_K" envDefault:"4"`
	PrimaryWeight       float64       `env:"PIPELINE_PRIMARY_WEIGHT" envDefault:"0.6"`
	SecondaryWeight     float64       `env:"PIPELINE_SECONDARY_WEIGHT" envDefault:"0.4"`
	VolatilityThreshold float64       `env:"PIPELINE_VOLATILITY_THRESHOLD" envDefault:"30"`
	MinSourceSamples    int           `env:"PIPELINE_MIN_SOURCE_SAMPLES" envDefault:"1"`
	SourcePriority      []string      `env:"PIPELINE_SOURCE_PRIORITY" envDefault:"cardmarket,ebay_sold,graded_feed" envSeparator:","`
	Workers             int           `env:"PIPELINE_WORKERS" envDefault:"4"`
	BatchSize           int           `env:"PIPELINE_BATCH_SIZE" envDefault:"500"`
	ScheduledLimit      int           `env:"PIPELINE_SCHEDULED_LIMIT" envDefault:"0"`
	SeenTTL             time.Duration `env:"PIPELINE_SEEN_TTL" envDefault:"6h"`

	KeysCron      string `env:"PIPELINE_KEYS_CRON" envDefault:"0 2 * * *"`
	IngestCron    string `env:"PIPELINE_INGEST_CRON" envDefault:"0 3 * * *"`
	MatchCron     string `env:"PIPELINE_MATCH_CRON" envDefault:"30 4 * * *"`
	AggregateCron string `env:"PIPELINE_AGGREGATE_CRON" envDefault:"0 5 * * *"`

	WorkerConcurrency int           `env:"PIPELINE_WORKER_CONCURRENCY" envDefault:"2"`
	TaskTimeout       time.Duration `env:"PIPELINE_TASK_TIMEOUT" envDefault:"2h"`
}

func (p Pipeline) validate() error {
	if p.OutlierK <= 0 {
		return errors.New("PIPELINE_OUTLIER_K must be positive")
	}

	if p.PrimaryWeight < 0 || p.SecondaryWeight < 0 || p.PrimaryWeight+p.SecondaryWeight <= 0 {
		return fmt.Errorf("invalid blend weights %.2f/%.2f", p.PrimaryWeight, p.SecondaryWeight)
	}

	if p.Workers <= 0 {
		return errors.New("PIPELINE_WORKERS must be positive")
	}

	if p.BatchSize <= 0 || p.ScheduledLimit < 0 {
		return errors.New("PIPELINE_BATCH_SIZE must be positive and PIPELINE_SCHEDULED_LIMIT not negative")
	}

	if len(p.SourcePriority) == 0 {
		return errors.New("PIPELINE_SOURCE_PRIORITY is empty")
	}

	return nil
}
