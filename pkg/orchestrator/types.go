package orchestrator

import (
	"fmt"
	"time"

	"github.com/harun/legomem/pkg/memory"
)

// State is a node of the orchestration state machine.
type State int

const (
	StatePlanning State = iota
	StateDelegating
	StateSummarizing
	StateDone
)

func (s State) String() string {
	switch s {
	case StatePlanning:
		return "planning"
	case StateDelegating:
		return "delegating"
	case StateSummarizing:
		return "summarizing"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Role identifies who produced a message.
type Role string

const (
	RoleOrchestrator Role = "orchestrator"
	RoleWorker       Role = "worker"
)

// Message is one entry of the run's message log.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Agent   string `json:"agent"`
	Subtask string `json:"subtask,omitempty"`
	Content string `json:"content"`
}

// AgentState is the mutable record of a single run.
type AgentState struct {
	TaskDescription   string
	Plan              []string
	CurrentStep       int
	Messages          []Message
	RetrievedMemories []memory.MemoryRecord
	FinalAnswer       *string
}

// SummaryPolicy selects which messages feed the summarizing prompt.
type SummaryPolicy int

const (
	// SummaryWorkerOnly summarizes worker results and leaves out
	// orchestrator coordination messages.
	SummaryWorkerOnly SummaryPolicy = iota
	// SummaryAll summarizes every message in the log.
	SummaryAll
)

func (p SummaryPolicy) includes(m Message) bool {
	return p == SummaryAll || m.Role == RoleWorker
}

// Status is the outcome of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Trajectory is the record of a finished or failed run.
type Trajectory struct {
	RunID           string                `json:"run_id"`
	TaskDescription string                `json:"task_description"`
	Plan            []string              `json:"plan"`
	Messages        []Message             `json:"messages"`
	FinalAnswer     string                `json:"final_answer,omitempty"`
	Status          Status                `json:"status"`
	FailedState     string                `json:"failed_state,omitempty"`
	Error           string                `json:"error,omitempty"`
	Err             error                 `json:"-"`
	Memories        []memory.MemoryRecord `json:"memories,omitempty"`
	StartedAt       time.Time             `json:"started_at"`
	FinishedAt      time.Time             `json:"finished_at"`
}
