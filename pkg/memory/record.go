package memory

import (
	"errors"
	"strings"
)

// SubtaskRecord is one delegated unit of work inside a memory record.
// Steps holds think/action annotated text.
type SubtaskRecord struct {
	Agent        string `json:"agent" yaml:"agent"`
	Description  string `json:"description" yaml:"description"`
	Steps        string `json:"steps,omitempty" yaml:"steps,omitempty"`
	Observations string `json:"observations,omitempty" yaml:"observations,omitempty"`
}

// MemoryRecord is the stored summary of a completed task.
type MemoryRecord struct {
	TaskDescription string          `json:"task_description" yaml:"task_description"`
	HighLevelPlan   string          `json:"high_level_plan" yaml:"high_level_plan"`
	Subtasks        []SubtaskRecord `json:"subtasks" yaml:"subtasks"`
	FinalAnswer     string          `json:"final_answer,omitempty" yaml:"final_answer,omitempty"`
	Reflections     string          `json:"reflections,omitempty" yaml:"reflections,omitempty"`
}

// ErrEmptyTask is returned by Validate for records without a task.
var ErrEmptyTask = errors.New("memory record has no task description")

// Validate reports whether the record can be stored.
func (r MemoryRecord) Validate() error {
	if strings.TrimSpace(r.TaskDescription) == "" {
		return ErrEmptyTask
	}
	return nil
}

// Clone returns a deep copy.
func (r MemoryRecord) Clone() MemoryRecord {
	out := r
	if r.Subtasks != nil {
		out.Subtasks = make([]SubtaskRecord, len(r.Subtasks))
		copy(out.Subtasks, r.Subtasks)
	}
	return out
}

// Projection is a subtask-level bank entry and the text it is embedded by.
type Projection struct {
	Record        MemoryRecord
	EmbeddingText string
}

// ProjectSubtasks splits r into one record per subtask for the subtask-level
// bank. Each projection keeps the parent task and plan as context and is
// embedded by its subtask description. Subtasks without a description are
// skipped.
func ProjectSubtasks(r MemoryRecord) []Projection {
	var out []Projection
	for _, st := range r.Subtasks {
		if strings.TrimSpace(st.Description) == "" {
			continue
		}
		out = append(out, Projection{
			Record: MemoryRecord{
				TaskDescription: r.TaskDescription,
				HighLevelPlan:   r.HighLevelPlan,
				Subtasks:        []SubtaskRecord{st},
			},
			EmbeddingText: st.Description,
		})
	}
	return out
}
