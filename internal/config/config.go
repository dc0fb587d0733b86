// Package config handles configuration loading and management for Beacon.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Beacon.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Server    ServerConfig    `mapstructure:"server"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Session   SessionConfig   `mapstructure:"session"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// UseBedrock routes agent calls through AWS Bedrock instead of the
	// direct API.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// ServerConfig holds transport server settings.
type ServerConfig struct {
	// Addr is the listen address for the websocket transport and read API.
	Addr string `mapstructure:"addr"`
	// Greeting is spoken when a call connects, before any caller utterance.
	Greeting string `mapstructure:"greeting"`
}

// AgentsConfig holds per-agent model and timeout settings.
type AgentsConfig struct {
	// RouterModel is the fast classification model.
	RouterModel string `mapstructure:"router_model"`
	// TriageModel is the deep-analysis model for critical calls.
	TriageModel string `mapstructure:"triage_model"`
	// InfoModel is the lighter model for non-critical calls.
	InfoModel string `mapstructure:"info_model"`
	// ClassifyTimeout bounds a single router invocation.
	ClassifyTimeout time.Duration `mapstructure:"classify_timeout"`
	// AnalysisTimeout bounds a single triage/info invocation.
	AnalysisTimeout time.Duration `mapstructure:"analysis_timeout"`
	// MaxRetries is the retry bound for timeout/unavailable failures.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryBackoff is the initial backoff, doubled per attempt.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// SessionConfig holds session controller settings.
type SessionConfig struct {
	// MinClassifyTokens is the minimum caller token count before the router
	// is invoked.
	MinClassifyTokens int `mapstructure:"min_classify_tokens"`
	// ReclassifyRunes is the minimum amount of new caller text, in runes,
	// that triggers a fresh classification after analysis completes.
	ReclassifyRunes int `mapstructure:"reclassify_runes"`
	// InactivityTimeout evicts sessions with no transport activity.
	InactivityTimeout time.Duration `mapstructure:"inactivity_timeout"`
	// ReorderWindow is how many sequence numbers ahead of the next expected
	// one the resequencer buffers before dropping input.
	ReorderWindow int `mapstructure:"reorder_window"`
}

// StorageConfig holds incident archive settings.
type StorageConfig struct {
	// DBPath is the SQLite archive location. Empty uses the XDG data path.
	DBPath string `mapstructure:"db_path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, BEACON_*)
// 2. Project config (.beacon.yaml in current directory or parent)
// 3. User config (~/.config/beacon/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("BEACON")
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("server.addr", "BEACON_ADDR")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.greeting", "Nine-nine-nine, what's your emergency?")

	v.SetDefault("agents.router_model", "claude-3-5-haiku-20241022")
	v.SetDefault("agents.triage_model", "claude-sonnet-4-20250514")
	v.SetDefault("agents.info_model", "claude-3-5-haiku-20241022")
	v.SetDefault("agents.classify_timeout", "8s")
	v.SetDefault("agents.analysis_timeout", "25s")
	v.SetDefault("agents.max_retries", 2)
	v.SetDefault("agents.retry_backoff", "250ms")

	v.SetDefault("session.min_classify_tokens", 3)
	v.SetDefault("session.reclassify_runes", 12)
	v.SetDefault("session.inactivity_timeout", "5m")
	v.SetDefault("session.reorder_window", 32)

	v.SetDefault("storage.db_path", "")
}

// getUserConfigDir returns the XDG config directory for Beacon.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "beacon")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "beacon")
	}
	return filepath.Join(home, ".config", "beacon")
}

// findProjectConfig searches for .beacon.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".beacon.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     ":8080",
			Greeting: "Nine-nine-nine, what's your emergency?",
		},
		Agents: AgentsConfig{
			RouterModel:     "claude-3-5-haiku-20241022",
			TriageModel:     "claude-sonnet-4-20250514",
			InfoModel:       "claude-3-5-haiku-20241022",
			ClassifyTimeout: 8 * time.Second,
			AnalysisTimeout: 25 * time.Second,
			MaxRetries:      2,
			RetryBackoff:    250 * time.Millisecond,
		},
		Session: SessionConfig{
			MinClassifyTokens: 3,
			ReclassifyRunes:   12,
			InactivityTimeout: 5 * time.Minute,
			ReorderWindow:     32,
		},
	}
}
