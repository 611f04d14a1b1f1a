package bench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harun/legomem/internal/observability"
	"github.com/harun/legomem/internal/tracing"
	"github.com/harun/legomem/pkg/agent"
	"github.com/harun/legomem/pkg/curation"
	"github.com/harun/legomem/pkg/llm"
	"github.com/harun/legomem/pkg/memory"
	"github.com/harun/legomem/pkg/orchestrator"
	"github.com/harun/legomem/pkg/planner"
	"github.com/harun/legomem/pkg/retrieval"
	"github.com/harun/legomem/pkg/tracker"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultWorkers bounds concurrent task runs.
const DefaultWorkers = 4

// Config holds the collaborators shared by every run.
type Config struct {
	Retriever   *retrieval.Retriever
	TaskBank    *memory.Store
	SubtaskBank *memory.Store

	Planner       llm.Completer
	Workers       agent.Pool
	SummaryPolicy orchestrator.SummaryPolicy

	Judge   *Judge
	Curator *curation.Curator
	Tracker tracker.Tracker
	Logger  zerolog.Logger
}

// RunConfig selects how one evaluation runs.
type RunConfig struct {
	Name     string
	Strategy retrieval.Strategy
	K        int
	SubtaskK int
	// Concurrency bounds parallel task runs; DefaultWorkers when zero.
	Concurrency int
	Learn       bool
	// WorkerPool overrides Config.Workers, e.g. a smaller worker model.
	WorkerPool agent.Pool
	MaxSteps   int
}

func (rc RunConfig) params() map[string]interface{} {
	return map[string]interface{}{
		"name":               rc.Name,
		"retrieval_strategy": rc.Strategy.String(),
		"K":                  rc.K,
		"subtask_k":          rc.SubtaskK,
		"learn":              rc.Learn,
	}
}

// TaskResult is the outcome of one task.
type TaskResult struct {
	Task       Task
	Trajectory *orchestrator.Trajectory
	Retrieved  int
	Success    bool
	Learned    bool
	Duration   time.Duration
	Err        error
}

// Report aggregates an evaluation.
type Report struct {
	Name     string
	Strategy retrieval.Strategy
	RunID    string
	Results  []TaskResult
	Metrics  Metrics
}

// Runner is the evaluation pipeline: retrieve, orchestrate, judge, learn.
type Runner struct {
	cfg Config
}

func NewRunner(cfg Config) (*Runner, error) {
	observability.EnsureRegistered()

	if cfg.Retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if cfg.Planner == nil {
		return nil, fmt.Errorf("planner completer is required")
	}
	if cfg.Workers == nil {
		return nil, fmt.Errorf("worker pool is required")
	}
	if cfg.Judge == nil {
		cfg.Judge = NewJudge(nil)
	}
	if cfg.Tracker == nil {
		cfg.Tracker = tracker.Nop{}
	}
	return &Runner{cfg: cfg}, nil
}

func (r *Runner) machine(rc RunConfig) (*orchestrator.Machine, error) {
	pool := r.cfg.Workers
	if rc.WorkerPool != nil {
		pool = rc.WorkerPool
	}

	var opts []orchestrator.Option
	if rc.Strategy.JustInTime() {
		k := rc.SubtaskK
		if k <= 0 {
			k = retrieval.DefaultSubtaskK
		}
		opts = append(opts, orchestrator.WithSubtaskMemories(r.cfg.Retriever.Lookup(k)))
	}
	if rc.MaxSteps > 0 {
		opts = append(opts, orchestrator.WithMaxSteps(rc.MaxSteps))
	}

	return orchestrator.NewMachine(orchestrator.Config{
		Planner:       r.cfg.Planner,
		Workers:       pool,
		SummaryPolicy: r.cfg.SummaryPolicy,
		Logger:        r.cfg.Logger,
	}, opts...)
}

// RunTask runs a single task through the pipeline.
func (r *Runner) RunTask(ctx context.Context, task Task, rc RunConfig) TaskResult {
	m, err := r.machine(rc)
	if err != nil {
		return TaskResult{Task: task, Err: err}
	}
	return r.runTask(ctx, m, task, rc)
}

func (r *Runner) runTask(ctx context.Context, m *orchestrator.Machine, task Task, rc RunConfig) TaskResult {
	start := time.Now()
	ctx = tracing.NewTaskContext(ctx, task.ID)
	logger := tracing.LoggerFromContext(ctx, r.cfg.Logger)

	ctx, span := tracing.StartSpan(ctx, "legomem.bench", "bench.run_task",
		attribute.String("task_id", task.ID),
		attribute.String("strategy", rc.Strategy.String()),
	)
	defer span.End()

	res := TaskResult{Task: task}
	defer func() {
		res.Duration = time.Since(start)
		observability.RecordTaskRun(rc.Strategy.String(), res.Duration, res.Success)
	}()

	retrieved, err := r.cfg.Retriever.Retrieve(ctx, rc.Strategy, task.Description, rc.K)
	if err != nil {
		res.Err = err
		span.RecordError(err)
		logger.Error().Err(err).Msg("Retrieval failed")
		return res
	}
	memories := retrieved.Memories()
	res.Retrieved = len(memories)

	traj, err := m.Run(ctx, task.Description, memories)
	res.Trajectory = traj
	if err != nil {
		res.Err = err
		span.RecordError(err)
		return res
	}

	success, err := r.cfg.Judge.Verify(ctx, task, traj)
	if err != nil {
		logger.Warn().Err(err).Msg("Judge failed, counting task as failed")
		res.Err = err
	}
	res.Success = success

	if rc.Learn && success {
		learned, err := r.Learn(ctx, traj)
		if err != nil {
			logger.Warn().Err(err).Msg("Learning from run failed")
		}
		res.Learned = learned
	}

	logger.Info().
		Bool("success", res.Success).
		Int("memories", res.Retrieved).
		Bool("learned", res.Learned).
		Msg("Task finished")
	return res
}

// Learn curates a completed run and stores the record in the task bank
// and its subtask projections in the subtask bank. It reports whether a
// record was stored.
func (r *Runner) Learn(ctx context.Context, traj *orchestrator.Trajectory) (bool, error) {
	if r.cfg.Curator == nil || r.cfg.TaskBank == nil {
		return false, errors.New("learning requires a curator and a task bank")
	}

	res := r.cfg.Curator.CurateTrajectory(ctx, traj)
	if res.Err != nil {
		return false, res.Err
	}
	return Store(ctx, r.cfg.TaskBank, r.cfg.SubtaskBank, *res.Record)
}

// Store adds rec to the task bank and its projections to the subtask bank.
// Records with neither a plan nor subtasks are skipped.
func Store(ctx context.Context, taskBank, subtaskBank *memory.Store, rec memory.MemoryRecord) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	if rec.HighLevelPlan == "" && len(rec.Subtasks) == 0 {
		return false, nil
	}

	if err := taskBank.Add(ctx, rec, rec.TaskDescription); err != nil {
		return false, fmt.Errorf("failed to add task memory: %w", err)
	}
	if subtaskBank == nil {
		return true, nil
	}
	for _, p := range memory.ProjectSubtasks(rec) {
		if err := subtaskBank.Add(ctx, p.Record, p.EmbeddingText); err != nil {
			return true, fmt.Errorf("failed to add subtask memory: %w", err)
		}
	}
	return true, nil
}

// Evaluate runs tasks with a bounded worker pool. Results keep the input
// order. Per-task failures are reported in the results; the returned error
// is only set when ctx ends the evaluation.
func (r *Runner) Evaluate(ctx context.Context, tasks []Task, rc RunConfig) (Report, error) {
	report := Report{Name: rc.Name, Strategy: rc.Strategy}

	m, err := r.machine(rc)
	if err != nil {
		return report, err
	}

	ctx = tracing.NewRunContext(ctx)
	logger := tracing.LoggerFromContext(ctx, r.cfg.Logger)

	runID, err := r.cfg.Tracker.StartRun(ctx, rc.Name, rc.params())
	if err != nil {
		logger.Warn().Err(err).Msg("Tracker failed to start run")
	}
	report.RunID = runID
	_ = r.cfg.Tracker.LogPrompt("planning", planner.BuildPrompt("{task}", nil), rc.params())
	defer func() {
		if err := r.cfg.Tracker.FinishRun(); err != nil {
			logger.Warn().Err(err).Msg("Tracker failed to finish run")
		}
	}()

	workers := rc.Concurrency
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([]TaskResult, len(tasks))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var trackMu sync.Mutex

	for i, task := range tasks {
		if ctx.Err() != nil {
			results[i] = TaskResult{Task: task, Err: ctx.Err()}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(index int, t Task) {
			defer wg.Done()
			defer func() { <-sem }()

			res := r.runTask(ctx, m, t, rc)
			results[index] = res

			trackMu.Lock()
			_ = r.cfg.Tracker.LogMetrics(map[string]float64{"task_success": boolMetric(res.Success)})
			trackMu.Unlock()
		}(i, task)
	}
	wg.Wait()

	report.Results = results
	report.Metrics = ComputeMetrics(results)

	_ = r.cfg.Tracker.LogMetrics(map[string]float64{
		"total_success_rate":      report.Metrics.Total / 100,
		"procedural_success_rate": report.Metrics.Procedural / 100,
		"general_success_rate":    report.Metrics.General / 100,
	})
	observability.SetSuccessRate(rc.Name, "total", report.Metrics.Total)
	observability.SetSuccessRate(rc.Name, TypeProcedural, report.Metrics.Procedural)
	observability.SetSuccessRate(rc.Name, TypeGeneral, report.Metrics.General)

	logger.Info().
		Str("name", rc.Name).
		Str("strategy", rc.Strategy.String()).
		Int("tasks", len(tasks)).
		Float64("success_rate", report.Metrics.Total).
		Msg("Evaluation completed")

	return report, ctx.Err()
}

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
