package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// BULKGEN_DATABASE_URL sets database.url.
const EnvPrefix = "BULKGEN"

// ErrInvalidConfig is returned when the loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")

	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.key_prefix", "bulkgen")
	v.SetDefault("job_store", "postgres")

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.tier1_model", "gemini-2.5-flash-lite")
	v.SetDefault("llm.tier2_model", "gemini-2.5-flash")
	v.SetDefault("llm.tier3_model", "claude-sonnet-4-5")
	v.SetDefault("llm.tier3_provider", "anthropic")
	v.SetDefault("llm.requests_per_minute", 60)
	v.SetDefault("llm.timeout_seconds", 120)
	v.SetDefault("llm.max_output_tokens", 8192)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.prompt_template_path", "")

	v.SetDefault("generation.max_batch_size", 30)
	v.SetDefault("generation.min_text_length", 30)
	v.SetDefault("generation.min_valid_fraction", 0.5)
	v.SetDefault("generation.escalate_on_content_filter", false)
	v.SetDefault("generation.difficult_units", []string{})
	v.SetDefault("generation.specialist_units", []string{})
	v.SetDefault("generation.max_retry_delay_seconds", 60)

	v.SetDefault("persistence.max_attempts", 5)
	v.SetDefault("persistence.base_backoff_ms", 200)
	v.SetDefault("persistence.stop_loss_ratio", 0.5)
	v.SetDefault("persistence.stop_loss_min_samples", 4)

	v.SetDefault("control.poll_interval_ms", 1000)
	v.SetDefault("control.max_pause_checks", 10)

	v.SetDefault("runner.worker_count", 2)
	v.SetDefault("runner.queue_size", 100)
	v.SetDefault("runner.stale_after_minutes", 10)
	v.SetDefault("runner.sweep_schedule", "@every 1m")
}

// Load configuration from environment variables and optionally a config
// file named config.{yaml,json,toml} in "." or "./config". Environment
// variables take precedence over values from config files.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the cross-section rules.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if cfg.JobStore == "redis" && cfg.Redis.URL == "" {
		return fmt.Errorf("%w: redis.url is required when job_store is redis", ErrInvalidConfig)
	}

	return nil
}
