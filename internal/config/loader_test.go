package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.configPath)
	assert.Equal(t, ".env", loader.envFile)
	assert.Equal(t, "legomem.json", NewLoader("").GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("defaults when file doesn't exist", func(t *testing.T) {
		clearProviderEnv(t)
		tmpDir := t.TempDir()

		cfg, err := NewLoader(filepath.Join(tmpDir, "missing.json")).WithEnvFile("").Load()
		require.NoError(t, err)

		assert.Equal(t, "openai", cfg.Models.Provider)
		assert.Equal(t, "gpt-4o", cfg.Models.Planner)
		assert.Equal(t, "text-embedding-3-large", cfg.Models.Embedding)
		assert.Equal(t, 3072, cfg.Models.EmbeddingDimension)
		assert.Equal(t, 5, cfg.Memory.TaskK)
		assert.Equal(t, 3, cfg.Memory.SubtaskK)
		assert.Equal(t, []int{1, 2, 3}, cfg.Bench.Levels)
		assert.Equal(t, []string{"vanilla"}, cfg.Bench.Strategies)
		assert.Equal(t, 4, cfg.Bench.Workers)
		assert.Zero(t, cfg.Bench.MaxSteps)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("derived paths", func(t *testing.T) {
		clearProviderEnv(t)
		cfg, err := NewLoader(filepath.Join(t.TempDir(), "missing.json")).WithEnvFile("").Load()
		require.NoError(t, err)

		assert.Equal(t, "data", cfg.DataDir)
		assert.Equal(t, filepath.Join("data", "memory_bank", "task_bank"), cfg.Memory.TaskBank)
		assert.Equal(t, filepath.Join("data", "memory_bank", "subtask_bank"), cfg.Memory.SubtaskBank)
		assert.Equal(t, filepath.Join("data", "officebench"), cfg.Bench.DataDir)
		assert.Equal(t, filepath.Join("data", "runs"), cfg.Tracking.Dir)
		assert.Equal(t, filepath.Join("data", "legomem.log"), cfg.Logging.File)
	})

	t.Run("config file overrides defaults", func(t *testing.T) {
		clearProviderEnv(t)
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "legomem.json")

		testConfig := `{
			"ai": {"openai_api_key": "sk-from-file"},
			"models": {"planner": "gpt-4o-mini", "embedding_dimension": 1536},
			"memory": {"task_k": 7},
			"bench": {"levels": [2], "strategies": ["dynamic", "query_rewrite"]},
			"data_dir": "` + filepath.ToSlash(tmpDir) + `"
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := NewLoader(configPath).WithEnvFile("").Load()
		require.NoError(t, err)

		assert.Equal(t, "sk-from-file", cfg.AI.OpenAIAPIKey)
		assert.Equal(t, "gpt-4o-mini", cfg.Models.Planner)
		assert.Equal(t, "gpt-4o", cfg.Models.Worker)
		assert.Equal(t, 1536, cfg.Models.EmbeddingDimension)
		assert.Equal(t, 7, cfg.Memory.TaskK)
		assert.Equal(t, 3, cfg.Memory.SubtaskK)
		assert.Equal(t, []int{2}, cfg.Bench.Levels)
		assert.Equal(t, []string{"dynamic", "query_rewrite"}, cfg.Bench.Strategies)
		assert.Equal(t, filepath.Join(filepath.FromSlash(filepath.ToSlash(tmpDir)), "memory_bank", "task_bank"), cfg.Memory.TaskBank)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		clearProviderEnv(t)
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "legomem.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"models": {"planner": "gpt-4o-mini"}}`), 0644))

		t.Setenv("LEGOMEM_MODELS_PLANNER", "gpt-4.1")
		t.Setenv("LEGOMEM_LOGGING_LEVEL", "debug")

		cfg, err := NewLoader(configPath).WithEnvFile("").Load()
		require.NoError(t, err)
		assert.Equal(t, "gpt-4.1", cfg.Models.Planner)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("provider key fallbacks", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("OPENAI_API_KEY", "sk-env")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")

		cfg, err := NewLoader(filepath.Join(t.TempDir(), "missing.json")).WithEnvFile("").Load()
		require.NoError(t, err)
		assert.Equal(t, "sk-env", cfg.AI.OpenAIAPIKey)
		assert.Equal(t, "sk-ant-env", cfg.AI.AnthropicAPIKey)
	})

	t.Run("dotenv file", func(t *testing.T) {
		clearProviderEnv(t)
		tmpDir := t.TempDir()
		envFile := filepath.Join(tmpDir, ".env")
		require.NoError(t, os.WriteFile(envFile, []byte("LEGOMEM_MODELS_WORKER=gpt-4o-mini\n"), 0644))
		t.Cleanup(func() { os.Unsetenv("LEGOMEM_MODELS_WORKER") })

		cfg, err := NewLoader(filepath.Join(tmpDir, "missing.json")).WithEnvFile(envFile).Load()
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", cfg.Models.Worker)
	})

	t.Run("missing dotenv file is fine", func(t *testing.T) {
		clearProviderEnv(t)
		tmpDir := t.TempDir()
		_, err := NewLoader(filepath.Join(tmpDir, "missing.json")).WithEnvFile(filepath.Join(tmpDir, "nope.env")).Load()
		assert.NoError(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "legomem.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{invalid`), 0644))

		_, err := NewLoader(configPath).WithEnvFile("").Load()
		assert.Error(t, err)
	})
}

func TestLoaderSave(t *testing.T) {
	clearProviderEnv(t)
	configPath := filepath.Join(t.TempDir(), "nested", "legomem.json")
	loader := NewLoader(configPath).WithEnvFile("")

	cfg := DefaultConfig()
	cfg.Models.Planner = "gpt-4o-mini"
	cfg.Bench.Workers = 8
	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", loaded.Models.Planner)
	assert.Equal(t, 8, loaded.Bench.Workers)
}
