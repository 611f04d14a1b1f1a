// Package planner turns a task and its retrieved memories into a linear
// plan of subtasks.
//
// Retrieved memories are presented as a mandatory reference: the model is
// told to copy literal identifiers (names, codes, IDs, years) verbatim,
// since procedural tasks fail on a single paraphrased value.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harun/legomem/pkg/llm"
	"github.com/harun/legomem/pkg/memory"
)

const planPrompt = `You are an orchestrator agent that coordinates specialized task agents.

## Task
%s

## Reference Memories (MANDATORY)
%s

## Instructions
Break the task into a high-level plan of subtasks. Each subtask must be small enough for a single specialized agent.
Write the plan as a numbered list with exactly one subtask per line ("1. ...", "2. ...").
Output only the numbered list.
`

const referenceFraming = `The records below describe similar tasks that were completed successfully.
They are a mandatory reference, not a suggestion:
- Reuse their plans wherever they apply to the task.
- Copy literal identifiers (names, codes, IDs, years, file names) exactly as written. Never paraphrase, round or guess them.

`

const noMemories = "No reference memories are available. Plan from the task description alone."

// Planner asks a completion model for a plan.
type Planner struct {
	completer llm.Completer
}

// New creates a Planner.
func New(completer llm.Completer) (*Planner, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	return &Planner{completer: completer}, nil
}

// Plan builds the prompt, calls the model once and parses the response.
// A response without numbered lines yields an empty plan and no error.
func (p *Planner) Plan(ctx context.Context, task string, memories []memory.MemoryRecord) ([]string, error) {
	response, err := p.completer.Complete(ctx, BuildPrompt(task, memories))
	if err != nil {
		return nil, err
	}
	return Parse(response), nil
}

// BuildPrompt renders the planning prompt.
func BuildPrompt(task string, memories []memory.MemoryRecord) string {
	return fmt.Sprintf(planPrompt, task, FormatMemories(memories))
}

// FormatMemories renders each memory's task and high-level plan.
func FormatMemories(memories []memory.MemoryRecord) string {
	if len(memories) == 0 {
		return noMemories
	}

	var b strings.Builder
	b.WriteString(referenceFraming)
	for i, m := range memories {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### Memory %d\nTask: %s\nPlan: %s", i+1, m.TaskDescription, m.HighLevelPlan)
	}
	return b.String()
}

// Parse keeps only the lines that start with a digit, in order.
func Parse(response string) []string {
	steps := llm.NumberedLines(response)
	if steps == nil {
		return []string{}
	}
	return steps
}

// Format renders a plan one step per line.
func Format(plan []string) string {
	return strings.Join(plan, "\n")
}
