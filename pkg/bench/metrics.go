package bench

// Metrics are success rates in percent.
type Metrics struct {
	Total      float64 `json:"total"`
	Procedural float64 `json:"procedural"`
	General    float64 `json:"general"`
}

// ComputeMetrics splits success by task type. A split with no tasks
// reports 0.
func ComputeMetrics(results []TaskResult) Metrics {
	var total, ok, proc, procOK, gen, genOK int
	for _, r := range results {
		total++
		if r.Success {
			ok++
		}
		switch r.Task.Type {
		case TypeProcedural:
			proc++
			if r.Success {
				procOK++
			}
		case TypeGeneral:
			gen++
			if r.Success {
				genOK++
			}
		}
	}
	return Metrics{
		Total:      percent(ok, total),
		Procedural: percent(procOK, proc),
		General:    percent(genOK, gen),
	}
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}
