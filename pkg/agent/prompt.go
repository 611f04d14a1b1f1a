package agent

import (
	"fmt"
	"strings"

	"github.com/harun/legomem/pkg/memory"
)

const workerPrompt = `You are a specialized agent: %s.

## Subtask
%s

## Overall task
%s

## Relevant memories
%s

Execute the subtask and return a summary of your actions and observations.
`

// BuildPrompt renders the worker prompt for one assignment.
func BuildPrompt(agentName string, a Assignment) string {
	return fmt.Sprintf(workerPrompt, agentName, a.Subtask, a.Task, formatMemories(a.Memories))
}

func formatMemories(memories []memory.MemoryRecord) string {
	var blocks []string
	for _, m := range memories {
		for _, st := range m.Subtasks {
			var b strings.Builder
			fmt.Fprintf(&b, "- Subtask: %s", st.Description)
			if st.Agent != "" {
				fmt.Fprintf(&b, " (agent: %s)", st.Agent)
			}
			if st.Steps != "" {
				fmt.Fprintf(&b, "\n  Steps: %s", st.Steps)
			}
			if st.Observations != "" {
				fmt.Fprintf(&b, "\n  Observations: %s", st.Observations)
			}
			blocks = append(blocks, b.String())
		}
	}
	if len(blocks) == 0 {
		return "None."
	}
	return strings.Join(blocks, "\n")
}
