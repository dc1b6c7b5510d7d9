// Package config resolves settings from defaults, an optional config file
// and the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// Server
	Port         string `mapstructure:"port"`
	ClientOrigin string `mapstructure:"client_origin"`
	BuildSecret  string `mapstructure:"build_secret"`

	// Model provider (OpenAI-compatible API, OpenRouter by default)
	APIKey     string `mapstructure:"api_key"`
	APIBaseURL string `mapstructure:"api_base_url"`
	ChatModel  string `mapstructure:"chat_model"`

	// Embeddings
	EmbedProvider    string        `mapstructure:"embed_provider"` // openai | hash
	EmbedModel       string        `mapstructure:"embed_model"`
	EmbedTimeout     time.Duration `mapstructure:"embed_timeout"`
	EmbedRetries     int           `mapstructure:"embed_retries"`
	EmbedConcurrency int           `mapstructure:"embed_concurrency"`

	// Storage
	StoreBackend string `mapstructure:"store_backend"` // file | sqlite
	StorePath    string `mapstructure:"store_path"`

	// Repository source
	GitHubRepo  string `mapstructure:"github_repo"`
	GitHubToken string `mapstructure:"github_token"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // text | json
}

var defaults = map[string]any{
	"port":              "5000",
	"client_origin":     "*",
	"build_secret":      "",
	"api_key":           "",
	"api_base_url":      "https://openrouter.ai/api/v1",
	"chat_model":        "deepseek/deepseek-chat-v3.1:free",
	"embed_provider":    "openai",
	"embed_model":       "openai/text-embedding-3-small",
	"embed_timeout":     "60s",
	"embed_retries":     0,
	"embed_concurrency": 1,
	"store_backend":     "file",
	"store_path":        "",
	"github_repo":       "",
	"github_token":      "",
	"log_level":         "info",
	"log_format":        "text",
}

// Load reads configuration from path (skipped when empty) and the
// environment. Environment variables use the upper-cased key names, e.g.
// EMBED_MODEL; the API key is read from OPENROUTER_API_KEY or OPENAI_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.AutomaticEnv()
	if err := v.BindEnv("api_key", "OPENROUTER_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.StorePath == "" {
		cfg.StorePath = "data/embeddings.json"
		if cfg.StoreBackend == "sqlite" {
			cfg.StorePath = "data/embeddings.db"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks for values the application cannot run with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("config: unknown store_backend %q (want file or sqlite)", c.StoreBackend)
	}
	switch c.EmbedProvider {
	case "openai", "hash":
	default:
		return fmt.Errorf("config: unknown embed_provider %q (want openai or hash)", c.EmbedProvider)
	}
	if c.EmbedRetries < 0 {
		return fmt.Errorf("config: embed_retries must not be negative, got %d", c.EmbedRetries)
	}
	if c.EmbedConcurrency < 1 {
		return fmt.Errorf("config: embed_concurrency must be at least 1, got %d", c.EmbedConcurrency)
	}
	if c.EmbedTimeout < 0 {
		return fmt.Errorf("config: embed_timeout must not be negative, got %s", c.EmbedTimeout)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
