package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/harun/legomem/internal/config"
	"github.com/harun/legomem/pkg/bench"
	"github.com/harun/legomem/pkg/retrieval"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	runStrategies  []string
	runLevels      []int
	runWorkers     int
	runLearn       bool
	runWorkerModel string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate benchmark tasks",
	Long: `Run every task of the selected levels through retrieval, the
orchestrator and the judge, once per retrieval strategy. With --learn,
successful trajectories are curated into the banks, which are saved at the
end.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringSliceVar(&runStrategies, "strategy", nil, "retrieval strategies: none, vanilla, dynamic, query_rewrite (default from config)")
	runCmd.Flags().IntSliceVar(&runLevels, "levels", nil, "benchmark levels (default from config)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrent tasks (default from config)")
	runCmd.Flags().BoolVar(&runLearn, "learn", false, "curate successful runs into the memory banks")
	runCmd.Flags().StringVar(&runWorkerModel, "worker-model", "", "model for task agents when it differs from the planner")
	rootCmd.AddCommand(runCmd)
}

func runOverrides(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		if len(runStrategies) > 0 {
			cfg.Bench.Strategies = runStrategies
		}
		if len(runLevels) > 0 {
			cfg.Bench.Levels = runLevels
		}
		if runWorkers > 0 {
			cfg.Bench.Workers = runWorkers
		}
		if cmd.Flags().Changed("learn") {
			cfg.Bench.Learn = runLearn
		}
		if runWorkerModel != "" {
			cfg.Models.Worker = runWorkerModel
		}
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		tasks, err := loadTasks(a.cfg)
		if err != nil {
			return err
		}

		runner, err := a.runner()
		if err != nil {
			return err
		}

		base := baseRunConfig(a.cfg)
		base.Learn = a.cfg.Bench.Learn
		if a.cfg.Models.Worker != a.cfg.Models.Planner {
			base.WorkerPool = workerPool(a.providers.Worker)
		}

		strategies := make([]retrieval.Strategy, 0, len(a.cfg.Bench.Strategies))
		for _, name := range a.cfg.Bench.Strategies {
			strategy, err := retrieval.ParseStrategy(name)
			if err != nil {
				return err
			}
			strategies = append(strategies, strategy)
		}

		out := cmd.OutOrStdout()
		evalErr := evaluateStrategies(cmd.Context(), out, runner, tasks, base, strategies)
		if !a.cfg.Bench.Learn {
			return evalErr
		}

		// Records learned before an interruption are kept.
		if err := a.saveBanks(); err != nil {
			return errors.Join(evalErr, err)
		}
		fmt.Fprintf(out, "Saved memory banks (task bank: %d, subtask bank: %d)\n",
			a.taskBank.Len(), a.subtaskBank.Len())
		return evalErr
	}, runOverrides(cmd))
}

func evaluateStrategies(ctx context.Context, out io.Writer, runner *bench.Runner, tasks []bench.Task, base bench.RunConfig, strategies []retrieval.Strategy) error {
	for _, strategy := range strategies {
		rc := base
		rc.Name = fmt.Sprintf("run-%s", strategy)
		rc.Strategy = strategy

		report, err := runner.Evaluate(ctx, tasks, rc)
		printReport(out, report)
		if err != nil {
			return err
		}
	}
	return nil
}

func loadTasks(cfg *config.Config) ([]bench.Task, error) {
	levels, err := bench.NewLoader(cfg.Bench.DataDir).LoadAllLevels(cfg.Bench.Levels)
	if err != nil {
		return nil, err
	}
	var tasks []bench.Task
	for _, lvl := range levels {
		tasks = append(tasks, lvl.Tasks...)
	}
	return tasks, nil
}

func baseRunConfig(cfg *config.Config) bench.RunConfig {
	return bench.RunConfig{
		K:           cfg.Memory.TaskK,
		SubtaskK:    cfg.Memory.SubtaskK,
		Concurrency: cfg.Bench.Workers,
		MaxSteps:    cfg.Bench.MaxSteps,
	}
}

func printReport(w io.Writer, report bench.Report) {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s (%s)", report.Name, report.Strategy))
	t.AppendHeader(table.Row{"Task", "Type", "Memories", "Success", "Learned", "Duration", "Error"})
	for _, res := range report.Results {
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		t.AppendRow(table.Row{
			res.Task.ID,
			res.Task.Type,
			res.Retrieved,
			res.Success,
			res.Learned,
			res.Duration.Round(time.Millisecond),
			errText,
		})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%.1f%%", report.Metrics.Total)})

	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "Overall: %.1f%%  Procedural: %.1f%%  General: %.1f%%\n",
		report.Metrics.Total, report.Metrics.Procedural, report.Metrics.General)
	if report.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", report.RunID)
	}
}
