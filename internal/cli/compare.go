package cli

import (
	"fmt"

	"github.com/harun/legomem/internal/config"
	"github.com/harun/legomem/pkg/bench"
	"github.com/spf13/cobra"
)

var compareLevels []int

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare baseline, LEGOMem and hybrid runs",
	Long: `Evaluate the same tasks without memory, with whole-task memories,
and with query rewrite plus the worker model, then print a side-by-side
table with deltas against the baseline. Banks are not modified.`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().IntSliceVar(&compareLevels, "levels", nil, "benchmark levels (default from config)")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	override := func(cfg *config.Config) {
		if len(compareLevels) > 0 {
			cfg.Bench.Levels = compareLevels
		}
	}

	return withApp(cmd.Context(), func(a *app) error {
		tasks, err := loadTasks(a.cfg)
		if err != nil {
			return err
		}

		runner, err := a.runner()
		if err != nil {
			return err
		}

		k := a.cfg.Memory.TaskK
		modes := []bench.Mode{
			bench.Baseline(),
			bench.LEGOMem(k),
			bench.Hybrid(k, workerPool(a.providers.Worker)),
		}

		reports, err := runner.Compare(cmd.Context(), tasks, modes, baseRunConfig(a.cfg))
		if len(reports) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), bench.RenderComparison(reports))
		}
		return err
	}, override)
}
