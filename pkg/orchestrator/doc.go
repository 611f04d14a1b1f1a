// Package orchestrator runs a task through the plan, delegate and
// summarize state machine.
//
// Invariants:
// - A run is sequential and owns its AgentState.
// - Messages are append-only; a failed transition leaves the state as it
//   was before that transition started.
// - Planning is a no-op when a plan already exists.
// - Completion failures wrap llm.ErrCompletion and end the run. The machine
//   never retries; wrap the completer with llm.WithRetry for that.
//
// Usage:
//
//	m, _ := orchestrator.NewMachine(orchestrator.Config{
//		Planner: completer,
//		Workers: agent.NewStaticPool(agent.NewTaskAgent("general_agent", completer)),
//		Logger:  logger,
//	})
//	traj, err := m.Run(ctx, task, memories)
package orchestrator
