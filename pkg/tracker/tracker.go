// Package tracker records experiment runs: their configuration, prompts and
// metrics. Trackers are best effort; callers never branch on them.
package tracker

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"
)

var (
	// ErrRunActive is returned by StartRun while another run is open.
	ErrRunActive = errors.New("tracker run already active")
	// ErrNoRun is returned when logging without an open run.
	ErrNoRun = errors.New("no active tracker run")
)

// Tracker records one run at a time. Implementations are safe for
// concurrent use.
type Tracker interface {
	StartRun(ctx context.Context, name string, config map[string]interface{}) (string, error)
	LogMetrics(metrics map[string]float64) error
	LogPrompt(name, text string, hparams map[string]interface{}) error
	FinishRun() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) StartRun(context.Context, string, map[string]interface{}) (string, error) {
	return "", nil
}
func (Nop) LogMetrics(map[string]float64) error { return nil }
func (Nop) LogPrompt(string, string, map[string]interface{}) error { return nil }
func (Nop) FinishRun() error { return nil }

type multi struct {
	trackers []Tracker
	logger   zerolog.Logger
}

// Multi fans every call out to trackers. Metric and prompt failures are
// logged and swallowed.
func Multi(logger zerolog.Logger, trackers ...Tracker) Tracker {
	return &multi{trackers: trackers, logger: logger}
}

func (m *multi) StartRun(ctx context.Context, name string, config map[string]interface{}) (string, error) {
	var runID string
	var errs []error
	for _, t := range m.trackers {
		id, err := t.StartRun(ctx, name, config)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if runID == "" {
			runID = id
		}
	}
	return runID, errors.Join(errs...)
}

func (m *multi) LogMetrics(metrics map[string]float64) error {
	for _, t := range m.trackers {
		if err := t.LogMetrics(metrics); err != nil {
			m.logger.Warn().Err(err).Msg("Tracker failed to log metrics")
		}
	}
	return nil
}

func (m *multi) LogPrompt(name, text string, hparams map[string]interface{}) error {
	for _, t := range m.trackers {
		if err := t.LogPrompt(name, text, hparams); err != nil {
			m.logger.Warn().Err(err).Str("prompt", name).Msg("Tracker failed to log prompt")
		}
	}
	return nil
}

func (m *multi) FinishRun() error {
	var errs []error
	for _, t := range m.trackers {
		if err := t.FinishRun(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func metricsDict(metrics map[string]float64) *zerolog.Event {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := zerolog.Dict()
	for _, k := range keys {
		d.Float64(k, metrics[k])
	}
	return d
}
