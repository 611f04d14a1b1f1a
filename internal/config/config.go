package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config represents the main legomem configuration
type Config struct {
	// Provider credentials
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Models
	Models ModelsConfig `json:"models" mapstructure:"models"`

	// Memory banks
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`

	// Benchmark runs
	Bench BenchConfig `json:"bench" mapstructure:"bench"`

	// Completion retries
	Retry RetryConfig `json:"retry" mapstructure:"retry"`

	// Run tracking
	Tracking TrackingConfig `json:"tracking" mapstructure:"tracking"`

	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// AIConfig holds provider credentials
type AIConfig struct {
	OpenAIAPIKey    string `json:"openai_api_key" mapstructure:"openai_api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key" mapstructure:"anthropic_api_key"`
	OpenAIBaseURL   string `json:"openai_base_url" mapstructure:"openai_base_url"`
}

// ModelsConfig selects the model behind each role
type ModelsConfig struct {
	Provider           string  `json:"provider" mapstructure:"provider"` // openai, anthropic
	Planner            string  `json:"planner" mapstructure:"planner"`
	Worker             string  `json:"worker" mapstructure:"worker"`
	Curator            string  `json:"curator" mapstructure:"curator"`
	Judge              string  `json:"judge" mapstructure:"judge"`
	Embedding          string  `json:"embedding" mapstructure:"embedding"`
	EmbeddingDimension int     `json:"embedding_dimension" mapstructure:"embedding_dimension"`
	Temperature        float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens          int     `json:"max_tokens" mapstructure:"max_tokens"`
}

// MemoryConfig holds memory bank settings
type MemoryConfig struct {
	BankDir     string `json:"bank_dir" mapstructure:"bank_dir"`
	TaskBank    string `json:"task_bank" mapstructure:"task_bank"`
	SubtaskBank string `json:"subtask_bank" mapstructure:"subtask_bank"`
	TaskK       int    `json:"task_k" mapstructure:"task_k"`
	SubtaskK    int    `json:"subtask_k" mapstructure:"subtask_k"`
	CacheSize   int    `json:"cache_size" mapstructure:"cache_size"` // embedding cache entries, 0 disables
}

// BenchConfig holds evaluation settings
type BenchConfig struct {
	DataDir       string   `json:"data_dir" mapstructure:"data_dir"`
	Levels        []int    `json:"levels" mapstructure:"levels"`
	Strategies    []string `json:"strategies" mapstructure:"strategies"`
	Workers       int      `json:"workers" mapstructure:"workers"`
	Learn         bool     `json:"learn" mapstructure:"learn"`
	SummaryPolicy string   `json:"summary_policy" mapstructure:"summary_policy"` // workers, all
	MaxSteps      int      `json:"max_steps" mapstructure:"max_steps"` // 0 follows the plan length
}

// RetryConfig holds completion retry settings
type RetryConfig struct {
	MaxAttempts      int `json:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMS int `json:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMS     int `json:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// TrackingConfig holds run tracker settings
type TrackingConfig struct {
	Dir     string `json:"dir" mapstructure:"dir"`
	Project string `json:"project" mapstructure:"project"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Addr     string `json:"addr" mapstructure:"addr"`
	Textfile string `json:"textfile" mapstructure:"textfile"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool    `json:"enabled" mapstructure:"enabled"`
	ServiceName string  `json:"service_name" mapstructure:"service_name"`
	SampleRatio float64 `json:"sample_ratio" mapstructure:"sample_ratio"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Models: ModelsConfig{
			Provider:           "openai",
			Planner:            "gpt-4o",
			Worker:             "gpt-4o",
			Curator:            "gpt-4o",
			Judge:              "gpt-4o",
			Embedding:          "text-embedding-3-large",
			EmbeddingDimension: 3072,
			Temperature:        0,
			MaxTokens:          4096,
		},
		Memory: MemoryConfig{
			TaskK:     5,
			SubtaskK:  3,
			CacheSize: 1024,
		},
		Bench: BenchConfig{
			Levels:        []int{1, 2, 3},
			Strategies:    []string{"vanilla"},
			Workers:       4,
			SummaryPolicy: "workers",
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			InitialBackoffMS: 1000,
			MaxBackoffMS:     8000,
		},
		Tracking: TrackingConfig{
			Project: "legomem",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "legomem",
			SampleRatio: 1,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		DataDir: "data",
	}
}

// String returns a JSON representation of the config with keys masked
func (c *Config) String() string {
	masked := *c
	masked.AI.OpenAIAPIKey = mask(c.AI.OpenAIAPIKey)
	masked.AI.AnthropicAPIKey = mask(c.AI.AnthropicAPIKey)
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// APIKey returns the key of the configured provider.
func (c *Config) APIKey() string {
	if strings.EqualFold(c.Models.Provider, "anthropic") {
		return c.AI.AnthropicAPIKey
	}
	return c.AI.OpenAIAPIKey
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if errs := NewValidator().ValidateConfig(c); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
