package tracker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FileTracker writes one JSON-lines file per run to <dir>/<run-id>.jsonl.
type FileTracker struct {
	dir     string
	project string

	mu     sync.Mutex
	file   *os.File
	events zerolog.Logger
	runID  string
	step   int
}

func NewFileTracker(dir, project string) *FileTracker {
	return &FileTracker{dir: dir, project: project}
}

// RunPath returns the file of the active run, or "" when none is open.
func (t *FileTracker) RunPath() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return ""
	}
	return t.file.Name()
}

func (t *FileTracker) StartRun(ctx context.Context, name string, config map[string]interface{}) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file != nil {
		return "", ErrRunActive
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create tracking directory: %w", err)
	}

	runID := uuid.NewString()
	file, err := os.OpenFile(filepath.Join(t.dir, runID+".jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to open run file: %w", err)
	}

	t.file = file
	t.runID = runID
	t.step = 0
	t.events = zerolog.New(file).With().
		Timestamp().
		Str("project", t.project).
		Str("run_id", runID).
		Logger()

	entry := t.events.Log().Str("event", "start").Str("name", name)
	if config != nil {
		entry = entry.Interface("config", config)
	}
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		entry = entry.Str("trace_id", span.SpanContext().TraceID().String())
		span.AddEvent("tracker.start", trace.WithAttributes(
			attribute.String("tracker.run_id", runID),
			attribute.String("tracker.name", name),
		))
	}
	entry.Msg("")

	return runID, nil
}

func (t *FileTracker) LogMetrics(metrics map[string]float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil {
		return ErrNoRun
	}
	t.step++
	t.events.Log().
		Str("event", "metrics").
		Int("step", t.step).
		Dict("metrics", metricsDict(metrics)).
		Msg("")
	return nil
}

func (t *FileTracker) LogPrompt(name, text string, hparams map[string]interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil {
		return ErrNoRun
	}
	entry := t.events.Log().
		Str("event", "prompt").
		Str("name", name).
		Str("text", text)
	if hparams != nil {
		entry = entry.Interface("hparams", hparams)
	}
	entry.Msg("")
	return nil
}

// FinishRun closes the active run. It is a no-op without one.
func (t *FileTracker) FinishRun() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil {
		return nil
	}
	t.events.Log().Str("event", "finish").Int("steps", t.step).Msg("")

	err := t.file.Close()
	t.file = nil
	t.runID = ""
	t.events = zerolog.Nop()
	if err != nil {
		return fmt.Errorf("failed to close run file: %w", err)
	}
	return nil
}
