package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "LEGOMEM"

// Loader handles configuration loading
type Loader struct {
	configPath string
	envFile    string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		envFile:    ".env",
	}
}

// WithEnvFile sets the dotenv file read before the config. An empty path
// disables it.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// Load loads the configuration. Values come from, in increasing priority:
// defaults, the JSON config file, LEGOMEM_* environment variables. A
// missing config or dotenv file is not an error.
func (l *Loader) Load() (*Config, error) {
	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	// Setup viper with the defaults as the base layer so that every key is
	// known to AutomaticEnv
	v := viper.New()
	v.SetConfigType("json")
	defaults, err := json.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to encode defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to read defaults: %w", err)
	}

	configPath := l.GetConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	// Read environment variables
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvFallbacks(cfg)
	applyDerivedPaths(cfg)
	return cfg, nil
}

// Save writes the configuration file
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}
	return "legomem.json"
}

// applyEnvFallbacks reads the provider SDKs' conventional variables when
// no key was configured.
func applyEnvFallbacks(cfg *Config) {
	if cfg.AI.OpenAIAPIKey == "" {
		cfg.AI.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.AI.AnthropicAPIKey == "" {
		cfg.AI.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.AI.OpenAIBaseURL == "" {
		cfg.AI.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	}
}

func applyDerivedPaths(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.Memory.BankDir == "" {
		cfg.Memory.BankDir = filepath.Join(cfg.DataDir, "memory_bank")
	}
	if cfg.Memory.TaskBank == "" {
		cfg.Memory.TaskBank = filepath.Join(cfg.Memory.BankDir, "task_bank")
	}
	if cfg.Memory.SubtaskBank == "" {
		cfg.Memory.SubtaskBank = filepath.Join(cfg.Memory.BankDir, "subtask_bank")
	}
	if cfg.Bench.DataDir == "" {
		cfg.Bench.DataDir = filepath.Join(cfg.DataDir, "officebench")
	}
	if cfg.Tracking.Dir == "" {
		cfg.Tracking.Dir = filepath.Join(cfg.DataDir, "runs")
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "legomem.log")
	}
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
