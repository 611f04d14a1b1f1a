package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harun/legomem/internal/observability"
	"github.com/harun/legomem/internal/tracing"
	"github.com/harun/legomem/pkg/agent"
	"github.com/harun/legomem/pkg/llm"
	"github.com/harun/legomem/pkg/memory"
	"github.com/harun/legomem/pkg/planner"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "legomem.orchestrator"

// planOverhead is the number of transitions a run makes besides one
// delegation per plan step: plan, leave delegation, summarize.
const planOverhead = 3

var (
	// ErrStepLimit is returned when a run exceeds its transition budget.
	ErrStepLimit = errors.New("orchestrator step limit exceeded")
	// ErrTerminal is returned by Step when called on StateDone.
	ErrTerminal = errors.New("orchestrator is in a terminal state")
)

const summaryPrompt = `You are an orchestrator agent. The subtasks of the task below have been delegated and executed.
Combine their results into the final answer.

## Task
%s

## Results
%s

Reply with the final answer only.
`

// Lookup returns subtask memories for a subtask just before it is delegated.
type Lookup func(ctx context.Context, subtask string) ([]memory.MemoryRecord, error)

// Config holds the collaborators of a Machine.
type Config struct {
	Planner llm.Completer
	// Summarizer defaults to Planner.
	Summarizer    llm.Completer
	Workers       agent.Pool
	SummaryPolicy SummaryPolicy
	Logger        zerolog.Logger
}

// Option is a functional option for configuring the Machine
type Option func(*Machine)

// WithSubtaskMemories enables just-in-time subtask retrieval during
// delegation.
func WithSubtaskMemories(lookup Lookup) Option {
	return func(m *Machine) {
		m.lookup = lookup
	}
}

// WithMaxSteps bounds the number of transitions per run. Without it the
// budget follows the plan: one transition per step plus planOverhead.
func WithMaxSteps(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxSteps = n
		}
	}
}

type transition func(ctx context.Context, st *AgentState) (State, error)

// Machine drives AgentState through planning, delegation and summarizing.
// A Machine holds no per-run state and may run several tasks concurrently.
type Machine struct {
	planner    *planner.Planner
	summarizer llm.Completer
	workers    agent.Pool
	policy     SummaryPolicy
	logger     zerolog.Logger
	lookup     Lookup
	maxSteps   int

	transitions map[State]transition
}

// NewMachine creates a Machine.
func NewMachine(cfg Config, opts ...Option) (*Machine, error) {
	observability.EnsureRegistered()

	if cfg.Planner == nil {
		return nil, fmt.Errorf("planner completer is required")
	}
	if cfg.Workers == nil {
		return nil, fmt.Errorf("worker pool is required")
	}
	if cfg.SummaryPolicy != SummaryWorkerOnly && cfg.SummaryPolicy != SummaryAll {
		return nil, fmt.Errorf("invalid summary policy: %d", cfg.SummaryPolicy)
	}

	p, err := planner.New(cfg.Planner)
	if err != nil {
		return nil, err
	}
	summarizer := cfg.Summarizer
	if summarizer == nil {
		summarizer = cfg.Planner
	}

	m := &Machine{
		planner:    p,
		summarizer: summarizer,
		workers:    cfg.Workers,
		policy:     cfg.SummaryPolicy,
		logger:     cfg.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.transitions = map[State]transition{
		StatePlanning:    m.plan,
		StateDelegating:  m.delegate,
		StateSummarizing: m.summarize,
	}
	return m, nil
}

// Step runs the transition out of state and returns the next state. On
// error st is unchanged by the failed transition and the returned state is
// the one that failed.
func (m *Machine) Step(ctx context.Context, state State, st *AgentState) (State, error) {
	if state == StateDone {
		return state, ErrTerminal
	}
	fn, ok := m.transitions[state]
	if !ok {
		return state, fmt.Errorf("unknown state: %s", state)
	}
	if err := ctx.Err(); err != nil {
		return state, err
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "orchestrator."+state.String(),
		attribute.Int("current_step", st.CurrentStep),
	)
	defer span.End()

	next, err := fn(ctx, st)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}
	return next, nil
}

// Run executes a task from PLANNING to DONE. The returned trajectory is
// never nil; on failure it is marked StatusFailed and the error is also
// returned.
func (m *Machine) Run(ctx context.Context, task string, memories []memory.MemoryRecord) (*Trajectory, error) {
	runID := tracing.GetRunID(ctx)
	if runID == "" {
		runID = tracing.NewRunID()
		ctx = tracing.WithRunID(ctx, runID)
	}
	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.WithTraceID(ctx, tracing.NewTraceID())
	}
	logger := tracing.LoggerFromContext(ctx, m.logger)

	ctx, span := tracing.StartSpan(ctx, tracerName, "orchestrator.run",
		attribute.String("run_id", runID),
		attribute.Int("memories", len(memories)),
	)
	defer span.End()

	st := &AgentState{
		TaskDescription:   task,
		RetrievedMemories: cloneRecords(memories),
	}
	traj := &Trajectory{
		RunID:           runID,
		TaskDescription: task,
		Memories:        cloneRecords(memories),
		StartedAt:       time.Now(),
	}

	state := StatePlanning
	var runErr error
	for steps := 0; state != StateDone; steps++ {
		if limit := m.stepLimit(st); steps >= limit {
			runErr = fmt.Errorf("%w: %d transitions", ErrStepLimit, limit)
			break
		}

		next, err := m.Step(ctx, state, st)
		if err != nil {
			runErr = err
			break
		}
		logger.Debug().
			Str("from", state.String()).
			Str("to", next.String()).
			Int("current_step", st.CurrentStep).
			Msg("Orchestrator transition")
		state = next
	}

	traj.Plan = append([]string(nil), st.Plan...)
	traj.Messages = append([]Message(nil), st.Messages...)
	traj.FinishedAt = time.Now()

	if runErr != nil {
		traj.Status = StatusFailed
		traj.FailedState = state.String()
		traj.Err = runErr
		traj.Error = runErr.Error()
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		logger.Error().
			Err(runErr).
			Str("state", state.String()).
			Int("messages", len(traj.Messages)).
			Msg("Task run failed")
		return traj, runErr
	}

	traj.Status = StatusCompleted
	if st.FinalAnswer != nil {
		traj.FinalAnswer = *st.FinalAnswer
	}
	span.SetStatus(codes.Ok, "completed")
	logger.Info().
		Int("plan_steps", len(traj.Plan)).
		Int("messages", len(traj.Messages)).
		Float64("duration_s", traj.Duration()).
		Msg("Task run completed")
	return traj, nil
}

func (m *Machine) stepLimit(st *AgentState) int {
	if m.maxSteps > 0 {
		return m.maxSteps
	}
	return len(st.Plan) + planOverhead
}

func (m *Machine) plan(ctx context.Context, st *AgentState) (State, error) {
	if len(st.Plan) > 0 {
		return StateDelegating, nil
	}

	start := time.Now()
	steps, err := m.planner.Plan(ctx, st.TaskDescription, st.RetrievedMemories)
	observability.RecordCompletion("planning", time.Since(start), err == nil)
	if err != nil {
		return StatePlanning, llm.CompletionError("planning", err)
	}

	st.Plan = steps
	st.CurrentStep = 0
	st.Messages = append(st.Messages, Message{
		ID:      newMessageID(),
		Role:    RoleOrchestrator,
		Agent:   string(RoleOrchestrator),
		Content: "Plan:\n" + planner.Format(steps),
	})
	return StateDelegating, nil
}

func (m *Machine) delegate(ctx context.Context, st *AgentState) (State, error) {
	if st.CurrentStep >= len(st.Plan) {
		return StateSummarizing, nil
	}

	subtask := st.Plan[st.CurrentStep]
	worker := m.workers.Pick(subtask)
	if worker == nil {
		return StateDelegating, fmt.Errorf("no worker for subtask %q", subtask)
	}

	var memories []memory.MemoryRecord
	if m.lookup != nil {
		found, err := m.lookup(ctx, subtask)
		if err != nil {
			return StateDelegating, fmt.Errorf("subtask retrieval: %w", err)
		}
		memories = found
		if err := ctx.Err(); err != nil {
			return StateDelegating, err
		}
	}

	workerCtx := tracing.PropagateToWorker(ctx, worker.Name())
	start := time.Now()
	res, err := worker.Execute(workerCtx, agent.Assignment{
		Task:     st.TaskDescription,
		Subtask:  subtask,
		Memories: memories,
	})
	observability.RecordCompletion("delegation", time.Since(start), err == nil)
	if err != nil {
		return StateDelegating, llm.CompletionError("delegation", err)
	}

	id := res.ID
	if id == "" {
		id = newMessageID()
	}
	name := res.Agent
	if name == "" {
		name = worker.Name()
	}
	st.Messages = append(st.Messages, Message{
		ID:      id,
		Role:    RoleWorker,
		Agent:   name,
		Subtask: subtask,
		Content: res.Observations,
	})
	st.CurrentStep++
	return StateDelegating, nil
}

func (m *Machine) summarize(ctx context.Context, st *AgentState) (State, error) {
	start := time.Now()
	response, err := m.summarizer.Complete(ctx, m.summaryPrompt(st))
	observability.RecordCompletion("summarizing", time.Since(start), err == nil)
	if err != nil {
		return StateSummarizing, llm.CompletionError("summarizing", err)
	}

	answer := strings.TrimSpace(response)
	st.FinalAnswer = &answer
	return StateDone, nil
}

func (m *Machine) summaryPrompt(st *AgentState) string {
	var parts []string
	for _, msg := range st.Messages {
		if m.policy.includes(msg) {
			parts = append(parts, formatMessage(msg))
		}
	}
	results := "No subtasks were executed."
	if len(parts) > 0 {
		results = strings.Join(parts, "\n\n")
	}
	return fmt.Sprintf(summaryPrompt, st.TaskDescription, results)
}

func newMessageID() string {
	id, err := gonanoid.New()
	if err != nil {
		return ""
	}
	return id
}

func cloneRecords(in []memory.MemoryRecord) []memory.MemoryRecord {
	if in == nil {
		return nil
	}
	out := make([]memory.MemoryRecord, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
