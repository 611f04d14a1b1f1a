package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harun/legomem/pkg/llm"
	"github.com/harun/legomem/pkg/memory"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// StatusSuccess marks a subtask the worker completed.
const StatusSuccess = "success"

// Assignment is the input to one delegated subtask.
type Assignment struct {
	Task     string                `json:"task"`
	Subtask  string                `json:"subtask"`
	Memories []memory.MemoryRecord `json:"memories,omitempty"`
}

// Result is what a worker reports back to the orchestrator.
type Result struct {
	ID           string `json:"id"`
	Agent        string `json:"agent"`
	Observations string `json:"observations"`
	Status       string `json:"status"`
}

// Worker executes one subtask.
type Worker interface {
	Name() string
	Execute(ctx context.Context, a Assignment) (Result, error)
}

// TaskAgent is a worker backed by a completion model.
type TaskAgent struct {
	name      string
	completer llm.Completer
}

// NewTaskAgent creates a task agent.
func NewTaskAgent(name string, completer llm.Completer) *TaskAgent {
	return &TaskAgent{name: name, completer: completer}
}

func (a *TaskAgent) Name() string { return a.name }

// Execute asks the model to perform the subtask and returns its summary
// as the observations.
func (a *TaskAgent) Execute(ctx context.Context, asg Assignment) (Result, error) {
	if a.completer == nil {
		return Result{}, errors.New("task agent has no completer")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	response, err := a.completer.Complete(ctx, BuildPrompt(a.name, asg))
	if err != nil {
		return Result{}, fmt.Errorf("agent %s: %w", a.name, err)
	}

	return Result{
		ID:           newResultID(),
		Agent:        a.name,
		Observations: strings.TrimSpace(response),
		Status:       StatusSuccess,
	}, nil
}

func newResultID() string {
	id, err := gonanoid.New()
	if err != nil {
		return ""
	}
	return id
}
