package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/harun/legomem/pkg/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T, n int) *Store {
	t.Helper()
	ctx := context.Background()
	store := newTestStore(t, llmtest.NewHashEmbedder(8))
	for i := 0; i < n; i++ {
		record := MemoryRecord{
			TaskDescription: fmt.Sprintf("task %d", i),
			HighLevelPlan:   fmt.Sprintf("1. step for %d", i),
			Subtasks: []SubtaskRecord{
				{Agent: "calendar_agent", Description: fmt.Sprintf("subtask %d", i), Steps: "<think>x</think><action>y</action>"},
			},
			FinalAnswer: "done",
		}
		if i%2 == 0 {
			record.Reflections = "went fine"
		}
		require.NoError(t, store.Add(ctx, record, record.TaskDescription))
	}
	return store
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	base := filepath.Join(t.TempDir(), "memory_bank", "task_bank")

	original := seededStore(t, 6)
	require.NoError(t, original.Save(base))

	assert.FileExists(t, IndexPath(base))
	assert.FileExists(t, RecordsPath(base))
	assert.NoFileExists(t, IndexPath(base)+".tmp")
	assert.True(t, Exists(base))

	loaded := newTestStore(t, llmtest.NewHashEmbedder(8))
	require.NoError(t, loaded.Load(base))

	assert.Equal(t, original.Records(), loaded.Records())
	assert.Equal(t, original.Dimension(), loaded.Dimension())

	for _, query := range []string{"task 3", "something else"} {
		want, err := original.SearchWithScores(ctx, query, 4)
		require.NoError(t, err)
		got, err := loaded.SearchWithScores(ctx, query, 4)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestStoreLoadMissingPath(t *testing.T) {
	store := newTestStore(t, llmtest.NewHashEmbedder(8))

	err := store.Load(filepath.Join(t.TempDir(), "empty", "task_bank"))
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
	assert.False(t, Exists(filepath.Join(t.TempDir(), "empty", "task_bank")))
}

func TestStoreSaveLoadEmpty(t *testing.T) {
	base := filepath.Join(t.TempDir(), "bank")

	require.NoError(t, newTestStore(t, llmtest.NewHashEmbedder(8)).Save(base))

	loaded := newTestStore(t, llmtest.NewHashEmbedder(8))
	require.NoError(t, loaded.Load(base))
	assert.Equal(t, 0, loaded.Len())
	assert.Equal(t, 0, loaded.Dimension())
}

func TestStoreLoadMisaligned(t *testing.T) {
	t.Run("records artifact missing", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "bank")
		require.NoError(t, seededStore(t, 2).Save(base))
		require.NoError(t, os.Remove(RecordsPath(base)))

		store := newTestStore(t, llmtest.NewHashEmbedder(8))
		err := store.Load(base)
		assert.ErrorIs(t, err, ErrMisaligned)
	})

	t.Run("index artifact missing", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "bank")
		require.NoError(t, seededStore(t, 2).Save(base))
		require.NoError(t, os.Remove(IndexPath(base)))

		store := newTestStore(t, llmtest.NewHashEmbedder(8))
		assert.ErrorIs(t, store.Load(base), ErrMisaligned)
	})

	t.Run("record count differs", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "bank")
		require.NoError(t, seededStore(t, 3).Save(base))

		var records []MemoryRecord
		data, err := os.ReadFile(RecordsPath(base))
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &records))
		data, err = json.Marshal(records[:2])
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(RecordsPath(base), data, 0644))

		// A failed load leaves existing contents alone.
		store := seededStore(t, 1)
		err = store.Load(base)
		assert.ErrorIs(t, err, ErrMisaligned)
		assert.Equal(t, 1, store.Len())
	})
}

func TestStoreLoadDimensionMismatch(t *testing.T) {
	base := filepath.Join(t.TempDir(), "bank")
	require.NoError(t, seededStore(t, 2).Save(base))

	store := newTestStore(t, llmtest.NewHashEmbedder(16))
	assert.ErrorIs(t, store.Load(base), ErrDimensionMismatch)
	assert.Equal(t, 0, store.Len())
}

func TestStoreSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	base := filepath.Join(t.TempDir(), "bank")

	store := seededStore(t, 2)
	require.NoError(t, store.Save(base))

	require.NoError(t, store.Add(ctx, MemoryRecord{TaskDescription: "extra"}, "extra"))
	require.NoError(t, store.Save(base))

	loaded := newTestStore(t, llmtest.NewHashEmbedder(8))
	require.NoError(t, loaded.Load(base))
	require.Equal(t, 3, loaded.Len())
	assert.Equal(t, "extra", loaded.Records()[2].TaskDescription)
}

func failRenameTo(t *testing.T, target string) {
	t.Helper()
	orig := renameFile
	renameFile = func(from, to string) error {
		if to == target {
			return &os.LinkError{Op: "rename", Old: from, New: to, Err: os.ErrPermission}
		}
		return orig(from, to)
	}
	t.Cleanup(func() { renameFile = orig })
}

func TestStoreSaveKeepsPreviousBankWhenRecordsFail(t *testing.T) {
	base := filepath.Join(t.TempDir(), "bank")

	previous := seededStore(t, 2)
	require.NoError(t, previous.Save(base))

	failRenameTo(t, RecordsPath(base))
	err := seededStore(t, 5).Save(base)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to move records into place")

	assert.NoFileExists(t, IndexPath(base)+".prev")
	assert.NoFileExists(t, IndexPath(base)+".tmp")
	assert.NoFileExists(t, RecordsPath(base)+".tmp")

	loaded := newTestStore(t, llmtest.NewHashEmbedder(8))
	require.NoError(t, loaded.Load(base))
	assert.Equal(t, previous.Records(), loaded.Records())
}

func TestStoreFirstSaveLeavesNothingWhenRecordsFail(t *testing.T) {
	base := filepath.Join(t.TempDir(), "bank")

	failRenameTo(t, RecordsPath(base))
	require.Error(t, seededStore(t, 3).Save(base))

	assert.False(t, Exists(base))

	loaded := newTestStore(t, llmtest.NewHashEmbedder(8))
	require.NoError(t, loaded.Load(base))
	assert.Equal(t, 0, loaded.Len())
}
