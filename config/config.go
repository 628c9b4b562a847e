// Package config loads bot deployment configuration from YAML with
// environment variable expansion, so tokens and keys stay out of the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	cerrors "github.com/aic-holdings/bot-slack-core/pkg/errors"
	"github.com/aic-holdings/bot-slack-core/runner"
)

// Config is the full deployment configuration for one bot.
type Config struct {
	Bot      runner.BotConfig `yaml:"bot"`
	Provider ProviderConfig   `yaml:"provider"`
	Slack    SlackConfig      `yaml:"slack"`
	Evals    EvalsConfig      `yaml:"evals"`
	Metrics  MetricsConfig    `yaml:"metrics"`
}

// ProviderConfig configures the chat backend client.
type ProviderConfig struct {
	// APIKey authenticates against the backend. Usually written as
	// ${OPENROUTER_API_KEY} in the file.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the API root. Empty means the production default.
	BaseURL string `yaml:"base_url"`

	// TimeoutSeconds bounds one request. Zero means the client default.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// RateLimitRPS paces outgoing requests. Zero disables pacing.
	RateLimitRPS float64 `yaml:"rate_limit_rps"`

	// RateLimitBurst is the burst allowance when pacing is enabled.
	RateLimitBurst int `yaml:"rate_limit_burst"`
}

// Timeout returns the configured request timeout.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// SlackConfig configures the Socket Mode adapter.
type SlackConfig struct {
	BotToken    string `yaml:"bot_token"`
	AppToken    string `yaml:"app_token"`
	ThreadLimit int    `yaml:"thread_limit"`
}

// EvalsConfig configures golden-case runs and baseline storage.
type EvalsConfig struct {
	// GoldenPath is the JSONL golden dataset, conventionally
	// evals/golden.jsonl in each bot repo.
	GoldenPath string `yaml:"golden_path"`

	// BaselineDir stores file baselines. Ignored when RedisAddr is set.
	BaselineDir string `yaml:"baseline_dir"`

	// RedisAddr switches baseline storage to Redis when non-empty.
	RedisAddr string `yaml:"redis_addr"`
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the exporter.
	Addr string `yaml:"addr"`
}

// Load reads path, expands ${VAR} references from the environment, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.New("config", "Load", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, cerrors.New("config", "Load", fmt.Errorf("parse %s: %w", path, err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if err := c.Bot.Validate(); err != nil {
		return err
	}
	if c.Provider.TimeoutSeconds < 0 {
		return cerrors.New("config", "Validate", fmt.Errorf("timeout_seconds must not be negative"))
	}
	if c.Provider.RateLimitRPS < 0 {
		return cerrors.New("config", "Validate", fmt.Errorf("rate_limit_rps must not be negative"))
	}
	if c.Bot.MaxIterations < 0 {
		return cerrors.New("config", "Validate", fmt.Errorf("max_iterations must not be negative"))
	}
	return nil
}
