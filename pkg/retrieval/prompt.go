package retrieval

import (
	"fmt"
	"strings"

	"github.com/harun/legomem/pkg/memory"
)

const (
	rewriteStart = "<start>"
	rewriteEnd   = "<end>"
)

const queryRewritePrompt = `Based on the following similar task examples, break down the new task into a step-by-step plan.
## Similar Task Examples:
%s
## New Task:
%s

Please provide a numbered list of 3-5 high-level steps that would be needed to complete this task.
Focus on the main phases/subtasks, not detailed actions.
Format your response as a simple numbered list enclosed within <start> and <end> tags:
<start>
1. [First step]
2. [Second step]
3. [Third step]
...
<end>
`

func buildRewritePrompt(task string, similar []memory.MemoryRecord) string {
	blocks := make([]string, 0, len(similar))
	for _, m := range similar {
		blocks = append(blocks, fmt.Sprintf("Task: %s\nPlan: %s", orNA(m.TaskDescription), orNA(m.HighLevelPlan)))
	}
	examples := strings.Join(blocks, "\n\n")
	if examples == "" {
		examples = "N/A"
	}
	return fmt.Sprintf(queryRewritePrompt, examples, task)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
