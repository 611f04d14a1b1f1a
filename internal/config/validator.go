package config

import (
	"fmt"
	"strings"

	"github.com/harun/legomem/pkg/retrieval"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateProvider validates a completion provider name
func (v *Validator) ValidateProvider(provider string) error {
	switch provider {
	case "openai", "anthropic":
		return nil
	default:
		return fmt.Errorf("invalid provider: %s (must be one of: openai, anthropic)", provider)
	}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateModel validates a model name
func (v *Validator) ValidateModel(role, model string) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("%s model cannot be empty", role)
	}
	return nil
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateStrategies validates retrieval strategy names
func (v *Validator) ValidateStrategies(strategies []string) error {
	for _, s := range strategies {
		if _, err := retrieval.ParseStrategy(s); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSummaryPolicy validates the summarizing message selection
func (v *Validator) ValidateSummaryPolicy(policy string) error {
	switch policy {
	case "", "workers", "all":
		return nil
	default:
		return fmt.Errorf("invalid summary policy: %s (must be one of: workers, all)", policy)
	}
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateProvider(cfg.Models.Provider); err != nil {
		errors = append(errors, err)
	} else if cfg.Models.Provider == "anthropic" {
		if err := v.ValidateAPIKey(cfg.AI.AnthropicAPIKey, "anthropic"); err != nil {
			errors = append(errors, err)
		}
	}

	// Embeddings always go through OpenAI. A custom base URL may front a
	// local server with its own key format.
	if cfg.AI.OpenAIBaseURL == "" {
		if err := v.ValidateAPIKey(cfg.AI.OpenAIAPIKey, "openai"); err != nil {
			errors = append(errors, err)
		}
	}

	models := []struct{ role, name string }{
		{"planner", cfg.Models.Planner},
		{"worker", cfg.Models.Worker},
		{"curator", cfg.Models.Curator},
		{"judge", cfg.Models.Judge},
		{"embedding", cfg.Models.Embedding},
	}
	for _, m := range models {
		if err := v.ValidateModel(m.role, m.name); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Models.EmbeddingDimension < 0 {
		errors = append(errors, fmt.Errorf("models.embedding_dimension must be >= 0"))
	}
	if err := v.ValidateTemperature(cfg.Models.Temperature); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateMaxTokens(cfg.Models.MaxTokens); err != nil {
		errors = append(errors, err)
	}

	if cfg.Memory.TaskK <= 0 {
		errors = append(errors, fmt.Errorf("memory.task_k must be > 0"))
	}
	if cfg.Memory.SubtaskK <= 0 {
		errors = append(errors, fmt.Errorf("memory.subtask_k must be > 0"))
	}
	if cfg.Memory.CacheSize < 0 {
		errors = append(errors, fmt.Errorf("memory.cache_size must be >= 0"))
	}

	if cfg.Bench.Workers <= 0 {
		errors = append(errors, fmt.Errorf("bench.workers must be > 0"))
	}
	for _, level := range cfg.Bench.Levels {
		if level <= 0 {
			errors = append(errors, fmt.Errorf("bench.levels must be positive, got %d", level))
		}
	}
	if cfg.Bench.MaxSteps < 0 {
		errors = append(errors, fmt.Errorf("bench.max_steps must be >= 0"))
	}
	if err := v.ValidateStrategies(cfg.Bench.Strategies); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateSummaryPolicy(cfg.Bench.SummaryPolicy); err != nil {
		errors = append(errors, err)
	}

	if cfg.Retry.MaxAttempts < 0 {
		errors = append(errors, fmt.Errorf("retry.max_attempts must be >= 0"))
	}
	if cfg.Retry.InitialBackoffMS < 0 {
		errors = append(errors, fmt.Errorf("retry.initial_backoff_ms must be >= 0"))
	}
	if cfg.Retry.MaxBackoffMS < 0 {
		errors = append(errors, fmt.Errorf("retry.max_backoff_ms must be >= 0"))
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errors = append(errors, fmt.Errorf("tracing.sample_ratio must be between 0 and 1"))
	}

	// Validate logging
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
