// Package worker runs pipeline stages as asynq tasks.
package worker

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
)

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary         //nolint:gochecknoglobals
	validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals
)

const (
	QueueName      = "pipeline"
	taskTypePrefix = "pipeline:"
)

// TaskType returns the asynq task type of stage, e.g. pipeline:match.
func TaskType(stage value.Stage) string {
	return taskTypePrefix + stage.String()
}

// StageFromTaskType is the inverse of TaskType.
func StageFromTaskType(taskType string) (value.Stage, error) {
	raw, ok := strings.CutPrefix(taskType, taskTypePrefix)
	if !ok {
		return "", fmt.Errorf("unknown task type %q", taskType)
	}
	return value.ParseStage(raw)
}

func NewTask(stage value.Stage, opts entity.RunOptions, taskOpts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}
	return asynq.NewTask(TaskType(stage), payload, taskOpts...), nil
}

func parsePayload(payload []byte) (entity.RunOptions, error) {
	var opts entity.RunOptions
	if len(payload) == 0 {
		return opts, nil
	}
	if err := json.Unmarshal(payload, &opts); err != nil {
		return opts, fmt.Errorf("json.Unmarshal: %w", err)
	}
	if err := validate.Struct(opts); err != nil {
		return opts, fmt.Errorf("validate: %w", err)
	}
	return opts, nil
}
