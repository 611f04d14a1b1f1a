package tracker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogTracker reports runs through a zerolog logger.
type LogTracker struct {
	base zerolog.Logger

	mu     sync.Mutex
	logger zerolog.Logger
	active bool
}

func NewLogTracker(logger zerolog.Logger) *LogTracker {
	return &LogTracker{base: logger, logger: logger}
}

func (t *LogTracker) StartRun(_ context.Context, name string, config map[string]interface{}) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		return "", ErrRunActive
	}
	runID := uuid.NewString()
	t.logger = t.base.With().Str("tracker_run", runID).Logger()
	t.active = true

	t.logger.Info().Str("name", name).Interface("config", config).Msg("Run started")
	return runID, nil
}

func (t *LogTracker) LogMetrics(metrics map[string]float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return ErrNoRun
	}
	t.logger.Info().Dict("metrics", metricsDict(metrics)).Msg("Run metrics")
	return nil
}

func (t *LogTracker) LogPrompt(name, _ string, hparams map[string]interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return ErrNoRun
	}
	t.logger.Debug().Str("prompt", name).Interface("hparams", hparams).Msg("Run prompt")
	return nil
}

func (t *LogTracker) FinishRun() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return nil
	}
	t.logger.Info().Msg("Run finished")
	t.logger = t.base
	t.active = false
	return nil
}
