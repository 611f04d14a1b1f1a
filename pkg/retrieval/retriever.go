// Package retrieval layers retrieval strategies over a task-level memory
// bank and an optional subtask-level bank.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/harun/legomem/internal/tracing"
	"github.com/harun/legomem/pkg/llm"
	"github.com/harun/legomem/pkg/memory"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultTaskK is the number of whole-task memories retrieved.
	DefaultTaskK = 5
	// DefaultSubtaskK is the number of subtask memories retrieved per step.
	DefaultSubtaskK = 3
)

// Searcher is the read side of a memory bank.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]memory.MemoryRecord, error)
}

// Config configures a Retriever. SubtaskBank and Rewriter are optional.
type Config struct {
	TaskBank    Searcher
	SubtaskBank Searcher
	Rewriter    llm.Completer
	SubtaskK    int
	Logger      zerolog.Logger
}

// Retriever implements the retrieval strategies.
type Retriever struct {
	taskBank    Searcher
	subtaskBank Searcher
	rewriter    llm.Completer
	subtaskK    int
	logger      zerolog.Logger
}

// Retrieval is the outcome of one strategy run.
type Retrieval struct {
	Strategy        Strategy
	TaskMemories    []memory.MemoryRecord
	SubtaskMemories []memory.MemoryRecord
	RewrittenSteps  []string
}

// Memories returns task memories followed by subtask memories.
func (r Retrieval) Memories() []memory.MemoryRecord {
	out := make([]memory.MemoryRecord, 0, len(r.TaskMemories)+len(r.SubtaskMemories))
	out = append(out, r.TaskMemories...)
	return append(out, r.SubtaskMemories...)
}

// New creates a Retriever.
func New(cfg Config) (*Retriever, error) {
	if cfg.TaskBank == nil {
		return nil, errors.New("task bank is required")
	}
	subtaskK := cfg.SubtaskK
	if subtaskK <= 0 {
		subtaskK = DefaultSubtaskK
	}
	return &Retriever{
		taskBank:    cfg.TaskBank,
		subtaskBank: cfg.SubtaskBank,
		rewriter:    cfg.Rewriter,
		subtaskK:    subtaskK,
		logger:      cfg.Logger,
	}, nil
}

// RetrieveVanilla returns the k whole-task memories nearest to task.
func (r *Retriever) RetrieveVanilla(ctx context.Context, task string, k int) ([]memory.MemoryRecord, error) {
	return r.taskBank.Search(ctx, task, k)
}

// RetrieveDynamic returns the k subtask memories nearest to subtask. With
// no subtask bank configured it returns an empty result.
func (r *Retriever) RetrieveDynamic(ctx context.Context, subtask string, k int) ([]memory.MemoryRecord, error) {
	if r.subtaskBank == nil {
		return []memory.MemoryRecord{}, nil
	}
	return r.subtaskBank.Search(ctx, subtask, k)
}

// RewriteQuery asks the model to decompose task into high-level steps, using
// the plans of similar tasks as examples. Any failure yields an empty
// result; callers fall back to vanilla retrieval.
func (r *Retriever) RewriteQuery(ctx context.Context, task string, similar []memory.MemoryRecord) []string {
	logger := tracing.LoggerFromContext(ctx, r.logger)

	if r.rewriter == nil {
		logger.Debug().Msg("No rewriter configured, skipping query rewrite")
		return []string{}
	}

	ctx, span := tracing.StartSpan(ctx, "legomem.retrieval", "retrieval.rewrite_query",
		attribute.Int("similar", len(similar)),
	)
	defer span.End()

	response, err := r.rewriter.Complete(ctx, buildRewritePrompt(task, similar))
	if err != nil {
		span.RecordError(err)
		logger.Warn().Err(llm.CompletionError("query rewrite", err)).Msg("Query rewrite failed")
		return []string{}
	}

	steps, perr := parseRewrite(response)
	if perr != nil {
		logger.Warn().Err(perr).Str("raw", perr.Raw).Msg("Could not parse rewritten query")
		return []string{}
	}
	return steps
}

func parseRewrite(response string) ([]string, *llm.ParseError) {
	body, ok := llm.Between(response, rewriteStart, rewriteEnd)
	if !ok {
		return nil, &llm.ParseError{Stage: "query rewrite", Reason: "missing <start>/<end> delimiters", Raw: response}
	}
	steps := llm.Lines(body)
	if len(steps) == 0 {
		return nil, &llm.ParseError{Stage: "query rewrite", Reason: "no steps between delimiters", Raw: response}
	}
	return steps, nil
}

// Retrieve gathers memories for task according to strategy. k bounds the
// whole-task lookup; subtask lookups use the configured SubtaskK.
func (r *Retriever) Retrieve(ctx context.Context, strategy Strategy, task string, k int) (Retrieval, error) {
	ctx, span := tracing.StartSpan(ctx, "legomem.retrieval", "retrieval.retrieve",
		attribute.String("strategy", string(strategy)),
		attribute.Int("k", k),
	)
	defer span.End()

	result := Retrieval{Strategy: strategy}

	switch strategy {
	case StrategyNone:
		return result, nil
	case StrategyVanilla, StrategyDynamic, StrategyQueryRewrite:
	default:
		return result, fmt.Errorf("unknown retrieval strategy: %q", strategy)
	}

	taskMemories, err := r.RetrieveVanilla(ctx, task, k)
	if err != nil {
		span.RecordError(err)
		return result, fmt.Errorf("failed to retrieve task memories: %w", err)
	}
	result.TaskMemories = taskMemories

	if strategy != StrategyQueryRewrite {
		return result, nil
	}

	steps := r.RewriteQuery(ctx, task, taskMemories)
	result.RewrittenSteps = steps
	if len(steps) == 0 {
		return result, nil
	}

	seen := make(map[string]bool)
	for _, step := range steps {
		found, err := r.RetrieveDynamic(ctx, step, r.subtaskK)
		if err != nil {
			span.RecordError(err)
			return result, fmt.Errorf("failed to retrieve subtask memories: %w", err)
		}
		for _, m := range found {
			key := subtaskKey(m)
			if seen[key] {
				continue
			}
			seen[key] = true
			result.SubtaskMemories = append(result.SubtaskMemories, m)
		}
	}

	logger := tracing.LoggerFromContext(ctx, r.logger)
	logger.Debug().
		Int("steps", len(steps)).
		Int("subtask_memories", len(result.SubtaskMemories)).
		Msg("Query rewrite retrieval completed")

	return result, nil
}

// Lookup adapts the retriever to the orchestrator's just-in-time hook.
func (r *Retriever) Lookup(k int) func(ctx context.Context, subtask string) ([]memory.MemoryRecord, error) {
	return func(ctx context.Context, subtask string) ([]memory.MemoryRecord, error) {
		return r.RetrieveDynamic(ctx, subtask, k)
	}
}

func subtaskKey(m memory.MemoryRecord) string {
	key := m.TaskDescription + "\x00"
	for _, st := range m.Subtasks {
		key += st.Description + "\x00"
	}
	return key
}
