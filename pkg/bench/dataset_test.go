package bench

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/harun/legomem/pkg/llm"
	"github.com/harun/legomem/pkg/llm/llmtest"
	"github.com/harun/legomem/pkg/memory"
	"github.com/harun/legomem/pkg/orchestrator"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderMissingLevel(t *testing.T) {
	tasks, err := NewLoader(t.TempDir()).LoadLevel(2)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "L2-1", tasks[0].ID)
	assert.Equal(t, "Mock level 2 task: Update the report and notify the team.", tasks[0].Description)
	assert.Equal(t, "Success", tasks[0].ExpectedOutput)
}

func TestLoaderFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "level_1.json"), []byte(`[
		{"id": "a", "description": "Email Alice", "expected_output": "sent", "type": "procedural"},
		{"description": "Explain the plan", "type": "general"}
	]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "level_3.yaml"), []byte(`
- id: y1
  description: Book a room
  expected_output: booked
`), 0o644))

	levels, err := NewLoader(dir).LoadAllLevels([]int{3, 1, 2})
	require.NoError(t, err)
	require.Len(t, levels, 3)

	assert.Equal(t, "Level 3", levels[0].Name)
	assert.Equal(t, []Task{{ID: "y1", Description: "Book a room", ExpectedOutput: "booked", Level: 3}}, levels[0].Tasks)

	l1 := levels[1].Tasks
	require.Len(t, l1, 2)
	assert.Equal(t, "a", l1[0].ID)
	assert.Equal(t, TypeProcedural, l1[0].Type)
	assert.Equal(t, "L1-2", l1[1].ID)
	assert.Equal(t, 1, l1[1].Level)

	assert.Equal(t, "L2-1", levels[2].Tasks[0].ID)
}

func TestLoaderRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "level_1.json"), []byte(`{not json`), 0o644))
	_, err := NewLoader(dir).LoadLevel(1)
	assert.Error(t, err)
}

func TestJudge(t *testing.T) {
	ctx := context.Background()
	completed := &orchestrator.Trajectory{Status: orchestrator.StatusCompleted, FinalAnswer: "Bob's ID is B-99."}
	task := Task{Description: "What is Bob's ID?", ExpectedOutput: "B-99"}

	t.Run("failed runs never succeed", func(t *testing.T) {
		ok, err := NewJudge(nil).Verify(ctx, task, &orchestrator.Trajectory{Status: orchestrator.StatusFailed})
		require.NoError(t, err)
		assert.False(t, ok)

		ok, _ = NewJudge(nil).Verify(ctx, task, nil)
		assert.False(t, ok)
	})

	t.Run("no expected output", func(t *testing.T) {
		ok, err := NewJudge(nil).Verify(ctx, Task{Description: "x"}, completed)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("containment fallback", func(t *testing.T) {
		ok, _ := NewJudge(nil).Verify(ctx, Task{ExpectedOutput: "b-99"}, completed)
		assert.True(t, ok)
		ok, _ = NewJudge(nil).Verify(ctx, Task{ExpectedOutput: "C-12"}, completed)
		assert.False(t, ok)
	})

	responses := []struct {
		response string
		want     bool
	}{
		{"YES, the answer matches.", true},
		{"yes", true},
		{"  **Yes** it does", true},
		{"NO. Wrong ID.", false},
		{"The answer is YES", false},
		{"", false},
	}
	for _, tt := range responses {
		t.Run("llm "+tt.response, func(t *testing.T) {
			completer := llmtest.NewScriptedCompleter(tt.response)
			ok, err := NewJudge(completer).Verify(ctx, task, completed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Contains(t, completer.Prompts()[0], "Expected output: B-99")
			assert.Contains(t, completer.Prompts()[0], "Agent's final answer: Bob's ID is B-99.")
		})
	}

	t.Run("judge failure", func(t *testing.T) {
		completer := llmtest.NewScriptedCompleter().FailOn(1, errors.New("down"))
		ok, err := NewJudge(completer).Verify(ctx, task, completed)
		assert.False(t, ok)
		assert.ErrorIs(t, err, llm.ErrCompletion)
	})
}

func TestComputeMetrics(t *testing.T) {
	results := []TaskResult{
		{Task: Task{Type: TypeProcedural}, Success: true},
		{Task: Task{Type: TypeProcedural}, Success: false},
		{Task: Task{Type: TypeGeneral}, Success: true},
		{Task: Task{}, Success: false},
	}
	m := ComputeMetrics(results)
	assert.Equal(t, 50.0, m.Total)
	assert.Equal(t, 50.0, m.Procedural)
	assert.Equal(t, 100.0, m.General)

	assert.Equal(t, Metrics{}, ComputeMetrics(nil))
}

func TestSeed(t *testing.T) {
	embedder := llmtest.NewKeywordEmbedder(32)
	taskBank, err := memory.NewStore(memory.StoreConfig{Name: "task", Embedder: embedder, Logger: zerolog.Nop()})
	require.NoError(t, err)
	subtaskBank, err := memory.NewStore(memory.StoreConfig{Name: "subtask", Embedder: embedder, Logger: zerolog.Nop()})
	require.NoError(t, err)

	records := append(DefaultSeeds(), memory.MemoryRecord{TaskDescription: "Nothing learned"})
	added, err := Seed(context.Background(), taskBank, subtaskBank, records)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, taskBank.Len())
	assert.Equal(t, 1, subtaskBank.Len())

	found, err := subtaskBank.Search(context.Background(), "Retrieve Bob's ID", 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Retrieve Bob's ID 'B-99'", found[0].Subtasks[0].Description)
	assert.Equal(t, "1. Access LEGOMem Personnel Records. 2. Retrieve Bob's ID 'B-99'.", found[0].HighLevelPlan)

	_, err = Seed(context.Background(), taskBank, subtaskBank, []memory.MemoryRecord{{HighLevelPlan: "x"}})
	assert.ErrorIs(t, err, memory.ErrEmptyTask)
}

func TestLoadSeeds(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "seeds.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
- task_description: Send the weekly report
  high_level_plan: "1. Open report. 2. Email team."
  subtasks:
    - agent: email_agent
      description: Email the report to the team
`), 0o644))

	records, err := LoadSeeds(yamlPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "email_agent", records[0].Subtasks[0].Agent)

	jsonPath := filepath.Join(dir, "seeds.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"task_description": "t", "high_level_plan": "p", "subtasks": []}]`), 0o644))
	records, err = LoadSeeds(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "t", records[0].TaskDescription)

	_, err = LoadSeeds(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
