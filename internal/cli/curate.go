package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/harun/legomem/pkg/bench"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var curateStore bool

var curateCmd = &cobra.Command{
	Use:   "curate <transcript-file>",
	Short: "Curate a trajectory transcript into a memory record",
	Long: `Send a run transcript to the curator and print the resulting
memory record as YAML. When curation fails the raw curator response is
printed instead. With --store the record is added to both banks.`,
	Args: cobra.ExactArgs(1),
	RunE: runCurate,
}

func init() {
	curateCmd.Flags().BoolVar(&curateStore, "store", false, "add the curated record to the memory banks")
	rootCmd.AddCommand(curateCmd)
}

func runCurate(cmd *cobra.Command, args []string) error {
	transcript, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}

	return withApp(cmd.Context(), func(a *app) error {
		out := cmd.OutOrStdout()

		res := a.curator().Curate(cmd.Context(), string(transcript))
		if !res.OK() {
			if res.Raw != "" {
				fmt.Fprintln(out, res.Raw)
			}
			return fmt.Errorf("curation failed: %w", res.Err)
		}

		data, err := yaml.Marshal(res.Record)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))

		if !curateStore {
			return nil
		}
		stored, err := bench.Store(cmd.Context(), a.taskBank, a.subtaskBank, *res.Record)
		if err != nil {
			return err
		}
		if !stored {
			return errors.New("curated record has no plan or subtasks, not stored")
		}
		if err := a.saveBanks(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Stored (task bank: %d, subtask bank: %d)\n", a.taskBank.Len(), a.subtaskBank.Len())
		return nil
	})
}
