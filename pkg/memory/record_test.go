package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectSubtasks(t *testing.T) {
	record := MemoryRecord{
		TaskDescription: "Schedule a meeting with Bob",
		HighLevelPlan:   "1. Check calendar. 2. Create event.",
		Subtasks: []SubtaskRecord{
			{Agent: "calendar_agent", Description: "Check Bob's schedule"},
			{Agent: "calendar_agent", Description: ""},
			{Agent: "calendar_agent", Description: "Create the event"},
		},
		FinalAnswer: "Meeting created",
	}

	projections := ProjectSubtasks(record)
	assert.Len(t, projections, 2)

	first := projections[0]
	assert.Equal(t, "Check Bob's schedule", first.EmbeddingText)
	assert.Equal(t, record.TaskDescription, first.Record.TaskDescription)
	assert.Equal(t, record.HighLevelPlan, first.Record.HighLevelPlan)
	assert.Equal(t, []SubtaskRecord{record.Subtasks[0]}, first.Record.Subtasks)
	assert.Empty(t, first.Record.FinalAnswer)

	assert.Equal(t, "Create the event", projections[1].EmbeddingText)
	assert.Empty(t, ProjectSubtasks(MemoryRecord{TaskDescription: "no subtasks"}))
}

func TestMemoryRecordClone(t *testing.T) {
	record := MemoryRecord{
		TaskDescription: "t",
		Subtasks:        []SubtaskRecord{{Agent: "a", Description: "d"}},
	}
	clone := record.Clone()
	clone.Subtasks[0].Agent = "changed"

	assert.Equal(t, "a", record.Subtasks[0].Agent)
	assert.Nil(t, MemoryRecord{}.Clone().Subtasks)
}

func TestMemoryRecordValidate(t *testing.T) {
	assert.NoError(t, MemoryRecord{TaskDescription: "x"}.Validate())
	assert.ErrorIs(t, MemoryRecord{TaskDescription: "  "}.Validate(), ErrEmptyTask)
}
