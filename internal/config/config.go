// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Poll     PollConfig     `mapstructure:"poll"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// UpstreamConfig holds alert service endpoints.
type UpstreamConfig struct {
	// BaseURL is the alert service root; the websocket endpoint is
	// derived from it.
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StreamConfig holds stream ingestor configuration.
type StreamConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseDelay time.Duration `mapstructure:"base_delay"`
	MaxDelay  time.Duration `mapstructure:"max_delay"`
}

// PollConfig holds polling fetcher configuration.
type PollConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// ThrottleConfig holds notification throttle configuration.
type ThrottleConfig struct {
	BaseInterval    time.Duration `mapstructure:"base_interval"`
	AdaptiveFactor  int           `mapstructure:"adaptive_factor"`
	AdaptiveEnabled bool          `mapstructure:"adaptive_enabled"`
}

// JournalConfig holds session journal configuration.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
	Path    string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/tradepulse"
	}
	return filepath.Join(home, ".config", "tradepulse")
}

// Load loads configuration from the specified directory plus environment
// overrides (TRADEPULSE_* variables). If configDir is empty, the default
// config directory is used. A missing config file yields defaults.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v, configDir)

	v.SetEnvPrefix("TRADEPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("upstream.base_url", "http://localhost:8080")
	v.SetDefault("upstream.timeout", 15*time.Second)

	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.base_delay", time.Second)
	v.SetDefault("stream.max_delay", 30*time.Second)

	v.SetDefault("poll.enabled", true)
	v.SetDefault("poll.interval", 2*time.Minute)

	v.SetDefault("throttle.base_interval", 30*time.Second)
	v.SetDefault("throttle.adaptive_factor", 3)
	v.SetDefault("throttle.adaptive_enabled", false)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", filepath.Join(configDir, "journal.db"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.path", filepath.Join(configDir, "logs", "pulse.log"))
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if c.Poll.Interval < time.Second {
		return fmt.Errorf("poll.interval must be at least 1s, got %s", c.Poll.Interval)
	}
	if c.Stream.BaseDelay <= 0 || c.Stream.MaxDelay < c.Stream.BaseDelay {
		return fmt.Errorf("stream backoff delays invalid: base %s, max %s", c.Stream.BaseDelay, c.Stream.MaxDelay)
	}
	if c.Throttle.AdaptiveFactor < 1 {
		return fmt.Errorf("throttle.adaptive_factor must be >= 1, got %d", c.Throttle.AdaptiveFactor)
	}
	return nil
}
