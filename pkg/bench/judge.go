package bench

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/harun/legomem/internal/observability"
	"github.com/harun/legomem/pkg/llm"
	"github.com/harun/legomem/pkg/orchestrator"
)

const judgePrompt = `You are grading whether an agent completed a task.

Task: %s
Expected output: %s
Agent's final answer: %s

Does the agent's final answer achieve the expected output? Start your reply with YES or NO, then give a one-sentence reason.
`

// Judge decides whether a run succeeded.
type Judge struct {
	completer llm.Completer
}

// NewJudge creates a judge. Without a completer it falls back to a
// case-insensitive containment check of the expected output.
func NewJudge(completer llm.Completer) *Judge {
	return &Judge{completer: completer}
}

// Verify reports success. Failed runs never succeed; tasks without an
// expected output succeed when the run completed.
func (j *Judge) Verify(ctx context.Context, task Task, traj *orchestrator.Trajectory) (bool, error) {
	if traj == nil || traj.Status != orchestrator.StatusCompleted {
		return false, nil
	}
	expected := strings.TrimSpace(task.ExpectedOutput)
	if expected == "" {
		return true, nil
	}
	if j == nil || j.completer == nil {
		return strings.Contains(strings.ToLower(traj.FinalAnswer), strings.ToLower(expected)), nil
	}

	start := time.Now()
	response, err := j.completer.Complete(ctx, fmt.Sprintf(judgePrompt, task.Description, expected, traj.FinalAnswer))
	observability.RecordCompletion("judge", time.Since(start), err == nil)
	if err != nil {
		return false, llm.CompletionError("judge", err)
	}
	return isYes(response), nil
}

func isYes(response string) bool {
	fields := strings.Fields(response)
	if len(fields) == 0 {
		return false
	}
	first := strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	return strings.EqualFold(first, "yes")
}
