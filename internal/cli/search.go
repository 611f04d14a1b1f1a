package cli

import (
	"fmt"
	"strings"

	"github.com/harun/legomem/pkg/memory"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	searchK       int
	searchSubtask bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search a memory bank",
	Long: `Print the memories nearest to a query with their squared L2
distances. The task bank is searched unless --subtask is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchK, "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchSubtask, "subtask", false, "search the subtask bank")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	return withApp(cmd.Context(), func(a *app) error {
		bank, k := a.taskBank, a.cfg.Memory.TaskK
		if searchSubtask {
			bank, k = a.subtaskBank, a.cfg.Memory.SubtaskK
		}
		if searchK > 0 {
			k = searchK
		}

		matches, err := bank.SearchWithScores(cmd.Context(), query, k)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No memories in the %s bank.\n", bank.Name())
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), renderMatches(matches, searchSubtask))
		return nil
	})
}

func renderMatches(matches []memory.Match, subtask bool) string {
	t := table.NewWriter()
	if subtask {
		t.AppendHeader(table.Row{"#", "Distance", "Agent", "Subtask", "Task"})
	} else {
		t.AppendHeader(table.Row{"#", "Distance", "Task", "Subtasks"})
	}

	for i, m := range matches {
		dist := fmt.Sprintf("%.4f", m.Distance)
		if subtask {
			var agentName, desc string
			if len(m.Record.Subtasks) > 0 {
				agentName = m.Record.Subtasks[0].Agent
				desc = m.Record.Subtasks[0].Description
			}
			t.AppendRow(table.Row{i + 1, dist, agentName, desc, m.Record.TaskDescription})
			continue
		}
		t.AppendRow(table.Row{i + 1, dist, m.Record.TaskDescription, len(m.Record.Subtasks)})
	}
	return t.Render()
}
