package cli

import (
	"context"
	"fmt"

	"github.com/harun/legomem/pkg/bench"
	"github.com/harun/legomem/pkg/memory"
	"github.com/spf13/cobra"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the memory banks",
	Long: `Add seed memories to the task and subtask banks and save them.
Without --file the built-in examples are used. Seed files are JSON or YAML
lists of memory records.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "seed records file (.json, .yaml)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	records := bench.DefaultSeeds()
	if seedFile != "" {
		var err error
		if records, err = bench.LoadSeeds(seedFile); err != nil {
			return err
		}
	}

	return withApp(cmd.Context(), func(a *app) error {
		return seed(cmd.Context(), a, cmd, records)
	})
}

func seed(ctx context.Context, a *app, cmd *cobra.Command, records []memory.MemoryRecord) error {
	added, err := bench.Seed(ctx, a.taskBank, a.subtaskBank, records)
	if err != nil {
		return err
	}
	if err := a.saveBanks(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d of %d records (task bank: %d, subtask bank: %d)\n",
		added, len(records), a.taskBank.Len(), a.subtaskBank.Len())
	return nil
}
