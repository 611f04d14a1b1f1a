package orchestrator

import (
	"fmt"
	"strings"
)

// Curatable reports whether the run may be turned into a memory.
func (t *Trajectory) Curatable() bool {
	return t != nil && t.Status == StatusCompleted
}

// Duration is the wall time of the run.
func (t *Trajectory) Duration() float64 {
	if t == nil || t.FinishedAt.IsZero() {
		return 0
	}
	return t.FinishedAt.Sub(t.StartedAt).Seconds()
}

// Transcript renders the run as plain text for curation.
func (t *Trajectory) Transcript() string {
	if t == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", t.TaskDescription)
	if len(t.Plan) > 0 {
		b.WriteString("Plan:\n")
		for _, step := range t.Plan {
			fmt.Fprintf(&b, "%s\n", step)
		}
	}
	b.WriteString("\n")
	for _, m := range t.Messages {
		b.WriteString(formatMessage(m))
		b.WriteString("\n")
	}
	if t.FinalAnswer != "" {
		fmt.Fprintf(&b, "\nFinal answer: %s\n", t.FinalAnswer)
	}
	return b.String()
}

func formatMessage(m Message) string {
	if m.Role == RoleOrchestrator {
		return fmt.Sprintf("[orchestrator] %s", m.Content)
	}
	return fmt.Sprintf("[%s] subtask: %s\n%s", m.Agent, m.Subtask, m.Content)
}
