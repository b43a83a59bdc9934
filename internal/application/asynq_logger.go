package application

import (
	"fmt"

	"go.uber.org/zap"
)

// newAsynqLogger builds the zap logger asynq reports its internals through.
func newAsynqLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.DisableStacktrace = true
	cfg.InitialFields = map[string]any{"component": "asynq"}

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("zap.Build: %w", err)
	}
	return log.Sugar(), nil
}
