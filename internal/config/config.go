package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL       = "http://localhost:7071"
	DefaultCheckInterval = "30s"
	DefaultTimeout       = "5s"
	DefaultStatsInterval = "5m"
	DefaultStatsDaysBack = 7
	DefaultLogLevel      = "info"
)

// Config represents the iris configuration
type Config struct {
	BaseURL       string `yaml:"base_url"`
	CheckInterval string `yaml:"check_interval"`
	Timeout       string `yaml:"timeout"`
	AutoStart     *bool  `yaml:"auto_start,omitempty"`
	CheckOnMount  *bool  `yaml:"check_on_mount,omitempty"`
	StatsInterval string `yaml:"stats_interval,omitempty"`
	StatsDaysBack int    `yaml:"stats_days_back,omitempty"`
	Notifications bool   `yaml:"notifications"`
	LogDir        string `yaml:"log_dir,omitempty"`
	LogLevel      string `yaml:"log_level,omitempty"`
}

// GetConfigDir returns the directory holding the config file and default logs
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "iris"), nil
}

// GetConfigPath returns the path to the global config file
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "config.yml"), nil
}

// InitConfig creates the config directory and file with default content
func InitConfig(force bool) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadConfig reads, parses and validates the config file
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML config data, fills defaults and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// SaveConfig writes the config back to the file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.CheckInterval == "" {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.Timeout == "" {
		c.Timeout = DefaultTimeout
	}
	if c.StatsInterval == "" {
		c.StatsInterval = DefaultStatsInterval
	}
	if c.StatsDaysBack <= 0 {
		c.StatsDaysBack = DefaultStatsDaysBack
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate checks that durations parse and are positive and that a base URL is set
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ResolvedBaseURL()) == "" {
		return fmt.Errorf("base_url is required")
	}

	durations := map[string]string{
		"check_interval": c.CheckInterval,
		"timeout":        c.Timeout,
		"stats_interval": c.StatsInterval,
	}
	for key, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s duration %q: %w", key, value, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, value)
		}
	}

	return nil
}

// ResolvedBaseURL returns the base URL with environment placeholders expanded
// and any trailing slash removed
func (c *Config) ResolvedBaseURL() string {
	return strings.TrimRight(ResolveEnv(c.BaseURL), "/")
}

// Interval returns the health check interval, falling back to the default
func (c *Config) Interval() time.Duration {
	return parseOr(c.CheckInterval, 30*time.Second)
}

// RequestTimeout returns the per-request timeout, falling back to the default
func (c *Config) RequestTimeout() time.Duration {
	return parseOr(c.Timeout, 5*time.Second)
}

// StatsRefresh returns how often the dashboard reloads usage stats
func (c *Config) StatsRefresh() time.Duration {
	return parseOr(c.StatsInterval, 5*time.Minute)
}

// AutoStartEnabled reports whether monitoring starts with the dashboard (default true)
func (c *Config) AutoStartEnabled() bool {
	return c.AutoStart == nil || *c.AutoStart
}

// CheckOnMountEnabled reports whether the dashboard probes once on open (default true)
func (c *Config) CheckOnMountEnabled() bool {
	return c.CheckOnMount == nil || *c.CheckOnMount
}

// LogDirectory returns the configured log directory or <config dir>/logs
func (c *Config) LogDirectory() string {
	if c.LogDir != "" {
		return ResolveEnv(c.LogDir)
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "logs"
	}
	return filepath.Join(dir, "logs")
}

func parseOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// getDefaultConfig returns the default configuration as YAML
func getDefaultConfig() string {
	return fmt.Sprintf(`# Iris Configuration
# Image recognition backend (supports ${VAR} placeholders)
base_url: %s

# Health monitoring
check_interval: %s
timeout: %s
auto_start: true
check_on_mount: true

# Usage statistics panel
stats_interval: %s
stats_days_back: %d

# Desktop notifications when the backend goes down or recovers
notifications: true

log_level: %s
`, DefaultBaseURL, DefaultCheckInterval, DefaultTimeout, DefaultStatsInterval, DefaultStatsDaysBack, DefaultLogLevel)
}

// ResolveEnv replaces $VAR and ${VAR} placeholders with their environment values
func ResolveEnv(value string) string {
	return os.ExpandEnv(value)
}
