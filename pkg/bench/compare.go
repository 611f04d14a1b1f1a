package bench

import (
	"context"
	"fmt"

	"github.com/harun/legomem/pkg/agent"
	"github.com/harun/legomem/pkg/retrieval"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Mode is one arm of a comparison.
type Mode struct {
	Name     string
	Strategy retrieval.Strategy
	K        int
	// WorkerPool overrides the runner's workers for this mode.
	WorkerPool agent.Pool
}

// Baseline runs without memories.
func Baseline() Mode {
	return Mode{Name: "Baseline", Strategy: retrieval.StrategyNone}
}

// LEGOMem runs with whole-task memories.
func LEGOMem(k int) Mode {
	return Mode{Name: "LEGOMem", Strategy: retrieval.StrategyVanilla, K: k}
}

// Hybrid pairs the planner with a separate worker pool and query rewrite.
func Hybrid(k int, workers agent.Pool) Mode {
	return Mode{Name: "Hybrid", Strategy: retrieval.StrategyQueryRewrite, K: k, WorkerPool: workers}
}

// Compare evaluates tasks once per mode, in order. The first mode is the
// reference for deltas.
func (r *Runner) Compare(ctx context.Context, tasks []Task, modes []Mode, base RunConfig) ([]Report, error) {
	reports := make([]Report, 0, len(modes))
	for _, mode := range modes {
		rc := base
		rc.Name = mode.Name
		rc.Strategy = mode.Strategy
		rc.K = mode.K
		rc.WorkerPool = mode.WorkerPool

		report, err := r.Evaluate(ctx, tasks, rc)
		if err != nil {
			return reports, fmt.Errorf("mode %s: %w", mode.Name, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// RenderComparison renders reports side by side with deltas against the
// first report.
func RenderComparison(reports []Report) string {
	t := table.NewWriter()

	header := table.Row{"Metric"}
	for i, rep := range reports {
		header = append(header, rep.Name)
		if i > 0 {
			header = append(header, "Delta "+rep.Name)
		}
	}
	t.AppendHeader(header)

	rows := []struct {
		label string
		value func(Metrics) float64
	}{
		{"Overall Success", func(m Metrics) float64 { return m.Total }},
		{"Procedural (Mem)", func(m Metrics) float64 { return m.Procedural }},
		{"General (Reasoning)", func(m Metrics) float64 { return m.General }},
	}

	for _, row := range rows {
		dataRow := table.Row{row.label}
		for i, rep := range reports {
			v := row.value(rep.Metrics)
			dataRow = append(dataRow, fmt.Sprintf("%.1f%%", v))
			if i > 0 {
				dataRow = append(dataRow, fmt.Sprintf("%+.1f%%", v-row.value(reports[0].Metrics)))
			}
		}
		t.AppendRow(dataRow)
	}

	return t.Render()
}
