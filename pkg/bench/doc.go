// Package bench evaluates the orchestrator on leveled office-task
// datasets and closes the learning loop by curating successful runs back
// into the memory banks.
//
// Usage:
//
//	runner, _ := bench.NewRunner(bench.Config{...})
//	levels, _ := bench.NewLoader(dataDir).LoadAllLevels([]int{1, 2, 3})
//	report, _ := runner.Evaluate(ctx, levels[0].Tasks, bench.RunConfig{
//		Name:     "vanilla-level1",
//		Strategy: retrieval.StrategyVanilla,
//		K:        5,
//	})
//	fmt.Println(report.Metrics.Total)
package bench
