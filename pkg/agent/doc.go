// Package agent executes single delegated subtasks with specialized
// task agents.
//
// Invariants:
// - A worker sees only its subtask, the overall task and the subtask
//   memories handed to it, never the orchestrator's message log.
// - Every Result carries the name of the agent that produced it.
//
// Usage:
//
//	pool := agent.NewRoutedPool(
//		agent.NewTaskAgent("general_agent", completer),
//		agent.DefaultRoutes(completer)...,
//	)
//	worker := pool.Pick("Check the calendar for Friday")
//	res, _ := worker.Execute(ctx, agent.Assignment{Task: task, Subtask: subtask})
//	_ = res
package agent
