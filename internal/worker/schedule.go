package worker

import (
	"fmt"

	"card_market/internal/config"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/application/modules"
)

// Schedules builds the periodic runs of every stage. An empty cron disables a stage.
func Schedules(cfg config.Pipeline) ([]modules.AsynqSchedule, error) {
	crons := map[value.Stage]string{
		value.StageKeys:      cfg.KeysCron,
		value.StageIngest:    cfg.IngestCron,
		value.StageMatch:     cfg.MatchCron,
		value.StageAggregate: cfg.AggregateCron,
	}

	schedules := make([]modules.AsynqSchedule, 0, len(value.Stages))
	for _, stage := range value.Stages {
		task, err := NewTask(stage, entity.RunOptions{Limit: cfg.ScheduledLimit})
		if err != nil {
			return nil, fmt.Errorf("NewTask(%s): %w", stage, err)
		}

		schedules = append(schedules, modules.AsynqSchedule{
			Cron: crons[stage],
			Task: task,
			Opts: TaskOptions(cfg.TaskTimeout),
		})
	}
	return schedules, nil
}
