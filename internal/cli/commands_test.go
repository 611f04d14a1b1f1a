package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/harun/legomem/internal/config"
	"github.com/harun/legomem/pkg/llm"
	"github.com/harun/legomem/pkg/llm/llmtest"
	"github.com/harun/legomem/pkg/memory"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const curatedJSON = `<start>{"high_level_plan": "1. Update the report. 2. Notify the team.",
"subtasks": [{"agent": "file_agent", "description": "Update the report"},
{"agent": "email_agent", "description": "Notify the team"}]}<end>`

type fakeModels struct {
	mu              sync.Mutex
	curatorResponse string
	workerPrompts   []string
	afterCurate     func()
}

func (f *fakeModels) providers() *providers {
	planner := llm.CompleterFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "Combine their results") {
			return "Success", nil
		}
		return "1. Update the report\n2. Notify the team", nil
	})
	worker := llm.CompleterFunc(func(_ context.Context, prompt string) (string, error) {
		f.mu.Lock()
		f.workerPrompts = append(f.workerPrompts, prompt)
		f.mu.Unlock()
		return "Done", nil
	})
	curator := llm.CompleterFunc(func(context.Context, string) (string, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.afterCurate != nil {
			defer f.afterCurate()
		}
		return f.curatorResponse, nil
	})
	judge := llm.CompleterFunc(func(context.Context, string) (string, error) {
		return "YES", nil
	})

	return &providers{
		Planner:  planner,
		Worker:   worker,
		Curator:  curator,
		Judge:    judge,
		Embedder: llmtest.NewKeywordEmbedder(64),
	}
}

type cliEnv struct {
	dir     string
	cfgPath string
	models  *fakeModels
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	dir := t.TempDir()
	env := &cliEnv{
		dir:     dir,
		cfgPath: filepath.Join(dir, "legomem.json"),
		models:  &fakeModels{curatorResponse: curatedJSON},
	}

	cfg := fmt.Sprintf(`{
		"ai": {"openai_api_key": "sk-test-key"},
		"bench": {"levels": [1], "workers": 2},
		"logging": {"console": false},
		"data_dir": %q
	}`, filepath.ToSlash(dir))
	require.NoError(t, os.WriteFile(env.cfgPath, []byte(cfg), 0644))

	orig := newProviders
	newProviders = func(*config.Config, zerolog.Logger) (*providers, error) {
		return env.models.providers(), nil
	}
	t.Cleanup(func() { newProviders = orig })

	return env
}

// resetFlags undoes flag state left by earlier executions. Slice flags are
// reset through their bound variables.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		switch f.Value.Type() {
		case "stringSlice", "intSlice":
		default:
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func (e *cliEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.executeContext(t, context.Background(), args...)
}

func (e *cliEnv) executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()

	seedFile, searchK, searchSubtask = "", 0, false
	runStrategies, runLevels, runWorkers, runLearn, runWorkerModel = nil, nil, 0, false, ""
	compareLevels, curateStore = nil, false
	logLevel = ""
	resetFlags(rootCmd)

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(append([]string{"--config", e.cfgPath}, args...))

	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func (e *cliEnv) loadBank(t *testing.T, name string) *memory.Store {
	t.Helper()
	store, err := memory.NewStore(memory.StoreConfig{Name: name, Embedder: llmtest.NewKeywordEmbedder(64)})
	require.NoError(t, err)
	require.NoError(t, store.Load(filepath.Join(e.dir, "memory_bank", name+"_bank")))
	return store
}

func TestVersionCommand(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "legomem version "+version+"\n", out)
}

func TestSeedAndSearch(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.execute(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 1 of 1 records (task bank: 1, subtask bank: 1)")

	assert.Equal(t, 1, env.loadBank(t, "task").Len())
	assert.Equal(t, 1, env.loadBank(t, "subtask").Len())

	out, err = env.execute(t, "search", "Bob's", "internal", "ID")
	require.NoError(t, err)
	assert.Contains(t, out, "What is Bob's specific internal ID")

	out, err = env.execute(t, "search", "--subtask", "Retrieve Bob's ID")
	require.NoError(t, err)
	assert.Contains(t, out, "id_agent")
}

func TestSeedFromFile(t *testing.T) {
	env := newCLIEnv(t)
	seeds := filepath.Join(env.dir, "seeds.yaml")
	require.NoError(t, os.WriteFile(seeds, []byte(`
- task_description: Email the quarterly report to finance
  high_level_plan: 1. Find the report. 2. Send it.
  subtasks:
    - agent: file_agent
      description: Find the quarterly report
    - agent: email_agent
      description: Send the report to finance
- task_description: Plan without subtasks or plan
`), 0644))

	out, err := env.execute(t, "seed", "--file", seeds)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 1 of 2 records (task bank: 1, subtask bank: 2)")
}

func TestSearchEmptyBank(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.execute(t, "search", "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "No memories in the task bank.")
}

func TestRunLearns(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.execute(t, "run", "--learn", "--strategy", "vanilla")
	require.NoError(t, err)
	assert.Contains(t, out, "L1-1")
	assert.Contains(t, out, "Overall: 100.0%")
	assert.Contains(t, out, "Saved memory banks (task bank: 1, subtask bank: 2)")

	task := env.loadBank(t, "task")
	require.Equal(t, 1, task.Len())
	assert.Contains(t, task.Records()[0].TaskDescription, "Mock level 1 task")

	runs, err := filepath.Glob(filepath.Join(env.dir, "runs", "*.jsonl"))
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunInterruptedStillSavesLearnedBanks(t *testing.T) {
	env := newCLIEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.models.afterCurate = cancel

	out, err := env.executeContext(t, ctx, "run", "--learn", "--strategy", "vanilla", "--strategy", "none")
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, out, "Saved memory banks (task bank: 1, subtask bank: 2)")
	assert.NotContains(t, out, "run-none")

	assert.Equal(t, 1, env.loadBank(t, "task").Len())
	assert.Equal(t, 2, env.loadBank(t, "subtask").Len())
}

func TestRunWithoutLearnLeavesBanks(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.execute(t, "run", "--strategy", "none", "--strategy", "dynamic")
	require.NoError(t, err)
	assert.NotContains(t, out, "Saved memory banks")
	assert.False(t, memory.Exists(filepath.Join(env.dir, "memory_bank", "task_bank")))
}

func TestRunRejectsUnknownStrategy(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.execute(t, "run", "--strategy", "magic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown retrieval strategy")
}

func TestCompare(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.execute(t, "seed")
	require.NoError(t, err)

	out, err := env.execute(t, "compare")
	require.NoError(t, err)
	upper := strings.ToUpper(out)
	for _, want := range []string{"BASELINE", "LEGOMEM", "HYBRID", "DELTA HYBRID", "OVERALL SUCCESS"} {
		assert.Contains(t, upper, want)
	}
	assert.Equal(t, 1, env.loadBank(t, "task").Len())
}

func TestCurate(t *testing.T) {
	env := newCLIEnv(t)
	transcript := filepath.Join(env.dir, "run.txt")
	require.NoError(t, os.WriteFile(transcript, []byte("Task: Update the report\nFinal answer: Done"), 0644))

	t.Run("prints the record", func(t *testing.T) {
		out, err := env.execute(t, "curate", transcript)
		require.NoError(t, err)
		assert.Contains(t, out, "high_level_plan: 1. Update the report. 2. Notify the team.")
		assert.Contains(t, out, "agent: email_agent")
		assert.NotContains(t, out, "Stored")
	})

	t.Run("stores the record", func(t *testing.T) {
		env.models.curatorResponse = strings.Replace(curatedJSON, "{", `{"task_description": "Update the report",`, 1)
		out, err := env.execute(t, "curate", "--store", transcript)
		require.NoError(t, err)
		assert.Contains(t, out, "Stored (task bank: 1, subtask bank: 2)")
	})

	t.Run("prints the raw response on failure", func(t *testing.T) {
		env.models.curatorResponse = "I cannot do that"
		out, err := env.execute(t, "curate", transcript)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "curation failed")
		assert.Contains(t, out, "I cannot do that")
	})

	t.Run("missing transcript", func(t *testing.T) {
		_, err := env.execute(t, "curate", filepath.Join(env.dir, "nope.txt"))
		require.Error(t, err)
	})
}

func TestInvalidConfig(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.execute(t, "--log-level", "verbose", "search", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
