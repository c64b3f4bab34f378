// Package config defines the Remo application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Remo configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Auth      AuthConfig      `json:"auth" yaml:"auth"`
	Provider  ProviderConfig  `json:"provider" yaml:"provider"`
	Push      PushConfig      `json:"push" yaml:"push"`
	Browser   BrowserConfig   `json:"browser" yaml:"browser"`
	Recorder  RecorderConfig  `json:"recorder" yaml:"recorder"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	DataDir   string          `json:"data_dir" yaml:"data_dir"`
	LogLevel  string          `json:"log_level" yaml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"` // listen address, e.g., ":8000"
}

// AuthConfig controls optional admin authentication. When AdminUser is empty
// the API runs open, which is how the mobile app talks to the backend.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
	AdminUser string `json:"admin_user" yaml:"admin_user"`
	AdminPass string `json:"admin_pass" yaml:"admin_pass"` // bcrypt hash
}

// ProviderConfig selects and configures the planner's LLM backend.
type ProviderConfig struct {
	Name   string `json:"name" yaml:"name"` // "gemini" or "mock"
	APIKey string `json:"api_key" yaml:"api_key"`
	Model  string `json:"model,omitempty" yaml:"model"`
}

// PushConfig configures FCM push delivery. An empty credentials file
// disables delivery; the scheduler keeps sweeping and logs instead.
type PushConfig struct {
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// BrowserConfig controls the fetch browser.
type BrowserConfig struct {
	Headless bool `json:"headless" yaml:"headless"`
}

// RecorderConfig controls interactive recording sessions.
type RecorderConfig struct {
	ScriptPath string `json:"script_path" yaml:"script_path"` // rrweb bundle on disk
	DefaultURL string `json:"default_url" yaml:"default_url"` // used when a task has no URL
}

// SchedulerConfig controls the reminder sweep.
type SchedulerConfig struct {
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8000",
		},
		Provider: ProviderConfig{
			Name:  "gemini",
			Model: "gemini-2.0-flash",
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		Recorder: RecorderConfig{
			ScriptPath: "assets/rrweb.js",
			DefaultURL: "about:blank",
		},
		Scheduler: SchedulerConfig{
			Interval: 60 * time.Second,
		},
		DataDir:  "./data",
		LogLevel: "info",
	}
}

// Load reads a YAML config file and returns the parsed configuration.
// The GEMINI_API_KEY environment variable overrides provider.api_key so the
// secret can stay out of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	return cfg, nil
}

// Validate checks that the configuration can actually start the daemon.
func (c *Config) Validate() error {
	if c.Provider.Name == "gemini" && c.Provider.APIKey == "" {
		return fmt.Errorf("provider %q selected but no API key configured (set GEMINI_API_KEY)", c.Provider.Name)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", c.Scheduler.Interval)
	}
	return nil
}
