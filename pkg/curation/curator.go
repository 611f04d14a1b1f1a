// Package curation turns run trajectories into structured memory records.
package curation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/harun/legomem/internal/observability"
	"github.com/harun/legomem/internal/tracing"
	"github.com/harun/legomem/pkg/llm"
	"github.com/harun/legomem/pkg/memory"
	"github.com/harun/legomem/pkg/orchestrator"
	"github.com/rs/zerolog"
)

const stage = "curation"

// ErrNotCuratable is returned for trajectories that did not complete.
var ErrNotCuratable = errors.New("trajectory is not curatable")

type Config struct {
	Completer llm.Completer
	Logger    zerolog.Logger
}

// Curator asks a completion model to summarize trajectories.
type Curator struct {
	completer llm.Completer
	logger    zerolog.Logger
}

func NewCurator(cfg Config) *Curator {
	observability.EnsureRegistered()
	return &Curator{completer: cfg.Completer, logger: cfg.Logger}
}

// Result is the outcome of one curation. Record is nil whenever Err is set;
// Raw keeps the model response either way.
type Result struct {
	Record *memory.MemoryRecord
	Raw    string
	Err    error
}

// OK reports whether a record was produced.
func (r Result) OK() bool {
	return r.Err == nil && r.Record != nil
}

// Curate summarizes a rendered trajectory. It never returns a partial record.
func (c *Curator) Curate(ctx context.Context, trajectory string) Result {
	if c.completer == nil {
		observability.RecordCuration("failed")
		return Result{Err: llm.CompletionError(stage, errors.New("no completer configured"))}
	}
	if err := ctx.Err(); err != nil {
		observability.RecordCuration("failed")
		return Result{Err: llm.CompletionError(stage, err)}
	}

	ctx, span := tracing.StartSpan(ctx, "legomem.curation", "curation.curate")
	defer span.End()

	start := time.Now()
	raw, err := c.completer.Complete(ctx, BuildPrompt(trajectory))
	observability.RecordCompletion(stage, time.Since(start), err == nil)
	if err != nil {
		observability.RecordCuration("failed")
		c.logger.Warn().Err(err).Msg("Curation completion failed")
		return Result{Err: llm.CompletionError(stage, err)}
	}

	rec, perr := Parse(raw)
	if perr != nil {
		observability.RecordCuration("rejected")
		c.logger.Warn().
			Str("reason", perr.Reason).
			Str("raw", raw).
			Msg("Curated memory rejected")
		return Result{Raw: raw, Err: perr}
	}

	observability.RecordCuration("parsed")
	c.logger.Debug().
		Int("subtasks", len(rec.Subtasks)).
		Msg("Curated memory parsed")
	return Result{Record: rec, Raw: raw}
}

// CurateTrajectory curates a completed run and fills the record's task
// description from it.
func (c *Curator) CurateTrajectory(ctx context.Context, t *orchestrator.Trajectory) Result {
	if !t.Curatable() {
		observability.RecordCuration("skipped")
		return Result{Err: ErrNotCuratable}
	}

	res := c.Curate(ctx, t.Transcript())
	if res.Record != nil {
		res.Record.TaskDescription = t.TaskDescription
		if res.Record.FinalAnswer == "" {
			res.Record.FinalAnswer = t.FinalAnswer
		}
	}
	return res
}

// Parse extracts the JSON block between <start> and <end> and validates it.
func Parse(raw string) (*memory.MemoryRecord, *llm.ParseError) {
	block, ok := llm.Between(raw, startTag, endTag)
	if !ok {
		return nil, &llm.ParseError{Stage: stage, Reason: "missing <start>/<end> delimiters", Raw: raw}
	}
	block = strings.TrimSpace(block)

	var doc interface{}
	if err := json.Unmarshal([]byte(block), &doc); err != nil {
		return nil, &llm.ParseError{Stage: stage, Reason: "invalid JSON: " + err.Error(), Raw: raw}
	}
	if err := validate(doc); err != nil {
		return nil, &llm.ParseError{Stage: stage, Reason: err.Error(), Raw: raw}
	}

	var rec memory.MemoryRecord
	if err := json.Unmarshal([]byte(block), &rec); err != nil {
		return nil, &llm.ParseError{Stage: stage, Reason: "invalid record: " + err.Error(), Raw: raw}
	}
	if rec.Subtasks == nil {
		rec.Subtasks = []memory.SubtaskRecord{}
	}
	return &rec, nil
}
