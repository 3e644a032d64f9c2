package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JobStore    string            `mapstructure:"job_store" validate:"required,oneof=postgres redis"`
	LLM         LLMConfig         `mapstructure:"llm" validate:"required"`
	Generation  GenerationConfig  `mapstructure:"generation" validate:"required"`
	Persistence PersistenceConfig `mapstructure:"persistence" validate:"required"`
	Control     ControlConfig     `mapstructure:"control" validate:"required"`
	Runner      RunnerConfig      `mapstructure:"runner" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json text"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// RedisConfig configures the optional Redis job store.
type RedisConfig struct {
	URL       string `mapstructure:"url" validate:"omitempty,url"`
	KeyPrefix string `mapstructure:"key_prefix" validate:"required"`
}

// LLMConfig contains the provider credentials and per-tier model settings.
type LLMConfig struct {
	GeminiAPIKey       string  `mapstructure:"gemini_api_key" validate:"required"`
	AnthropicAPIKey    string  `mapstructure:"anthropic_api_key" validate:"required_if=Tier3Provider anthropic"`
	Tier1Model         string  `mapstructure:"tier1_model" validate:"required"`
	Tier2Model         string  `mapstructure:"tier2_model" validate:"required"`
	Tier3Model         string  `mapstructure:"tier3_model" validate:"required"`
	Tier3Provider      string  `mapstructure:"tier3_provider" validate:"required,oneof=gemini anthropic"`
	RequestsPerMinute  int     `mapstructure:"requests_per_minute" validate:"required,gt=0"`
	TimeoutSeconds     int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxOutputTokens    int     `mapstructure:"max_output_tokens" validate:"required,gt=0"`
	Temperature        float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	PromptTemplatePath string  `mapstructure:"prompt_template_path" validate:"omitempty,file"`
}

// Timeout returns the per-call provider timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GenerationConfig tunes batching, the quality gate and tier escalation.
type GenerationConfig struct {
	MaxBatchSize            int      `mapstructure:"max_batch_size" validate:"required,gt=0,lte=100"`
	MinTextLength           int      `mapstructure:"min_text_length" validate:"gte=0"`
	MinValidFraction        float64  `mapstructure:"min_valid_fraction" validate:"gte=0,lte=1"`
	EscalateOnContentFilter bool     `mapstructure:"escalate_on_content_filter"`
	DifficultUnits          []string `mapstructure:"difficult_units"`
	SpecialistUnits         []string `mapstructure:"specialist_units"`
	MaxRetryDelaySeconds    int      `mapstructure:"max_retry_delay_seconds" validate:"gte=0"`
}

// MaxRetryDelay caps how long the batch generator honors a suggested delay.
func (c GenerationConfig) MaxRetryDelay() time.Duration {
	return time.Duration(c.MaxRetryDelaySeconds) * time.Second
}

// PersistenceConfig tunes item write retries and the stop-loss rule.
type PersistenceConfig struct {
	MaxAttempts        int     `mapstructure:"max_attempts" validate:"required,gt=0"`
	BaseBackoffMS      int     `mapstructure:"base_backoff_ms" validate:"gte=0"`
	StopLossRatio      float64 `mapstructure:"stop_loss_ratio" validate:"gt=0,lte=1"`
	StopLossMinSamples int     `mapstructure:"stop_loss_min_samples" validate:"required,gt=0"`
}

// BaseBackoff returns the first retry delay.
func (c PersistenceConfig) BaseBackoff() time.Duration {
	return time.Duration(c.BaseBackoffMS) * time.Millisecond
}

// ControlConfig tunes the pause wait loop.
type ControlConfig struct {
	PollIntervalMS int `mapstructure:"poll_interval_ms" validate:"required,gt=0"`
	MaxPauseChecks int `mapstructure:"max_pause_checks" validate:"required,gt=0"`
}

// PollInterval returns the delay between pause re-checks.
func (c ControlConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// RunnerConfig sizes the job runner and its recovery sweep.
type RunnerConfig struct {
	WorkerCount       int    `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize         int    `mapstructure:"queue_size" validate:"required,gt=0"`
	StaleAfterMinutes int    `mapstructure:"stale_after_minutes" validate:"required,gt=0"`
	SweepSchedule     string `mapstructure:"sweep_schedule"`
}

// StaleAfter returns the age past which a non-terminal job is considered abandoned.
func (c RunnerConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterMinutes) * time.Minute
}
