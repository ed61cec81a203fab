// Package config handles application configuration from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Database   DatabaseConfig  `yaml:"database"`
	Models     ModelsConfig    `yaml:"models"`
	RateLimits RateLimitConfig `yaml:"rate_limits"`
	Progress   ProgressConfig  `yaml:"progress"`
	Logging    LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port     int  `yaml:"port"`
	EnableUI bool `yaml:"enable_ui"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite
	Path   string `yaml:"path"`
}

// ModelsConfig selects the predictor backends and bounds inference time.
type ModelsConfig struct {
	Classifier     PredictorConfig `yaml:"classifier"`
	Regressor      PredictorConfig `yaml:"regressor"`
	TimeoutSeconds int             `yaml:"timeout_seconds"`
}

type PredictorConfig struct {
	Provider string `yaml:"provider"` // modelserver, baseline
	URL      string `yaml:"url"`      // for modelserver
	Name     string `yaml:"name"`     // model name on the server
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"default_requests_per_minute"`
}

// ProgressConfig tunes the cosmetic progress stream. It has no bearing on
// inference correctness.
type ProgressConfig struct {
	StageMillis int `yaml:"stage_millis"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			EnableUI: true,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "./data/sentinel.db",
		},
		Models: ModelsConfig{
			Classifier: PredictorConfig{
				Provider: "baseline",
				Name:     "malaria-detector",
			},
			Regressor: PredictorConfig{
				Provider: "baseline",
				Name:     "case-forecaster",
			},
			TimeoutSeconds: 30,
		},
		RateLimits: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Progress: ProgressConfig{
			StageMillis: 400,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// InferenceTimeout returns the configured per-call inference bound.
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Models.TimeoutSeconds) * time.Second
}

// StageInterval returns the cadence of cosmetic progress events.
func (c *Config) StageInterval() time.Duration {
	return time.Duration(c.Progress.StageMillis) * time.Millisecond
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s (run with --generate-config to create one)", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Interpolate environment variables
	content := interpolateEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// GenerateSample creates a sample configuration file.
func GenerateSample(path string) error {
	sample := `# Sentinel Configuration
# See documentation for all options

server:
  port: 8080
  enable_ui: true

database:
  driver: sqlite
  path: ./data/sentinel.db

models:
  classifier:
    provider: baseline  # baseline or modelserver
    name: malaria-detector
    # url: http://localhost:9090
  regressor:
    provider: baseline  # baseline or modelserver
    name: case-forecaster
    # url: http://localhost:9090
  timeout_seconds: 30

rate_limits:
  default_requests_per_minute: 60

progress:
  stage_millis: 400

logging:
  level: info  # debug, info, warn, error
  format: json # json or text
`
	return os.WriteFile(path, []byte(sample), 0644)
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	for _, pc := range []struct {
		role string
		cfg  PredictorConfig
	}{
		{"classifier", c.Models.Classifier},
		{"regressor", c.Models.Regressor},
	} {
		switch pc.cfg.Provider {
		case "baseline":
		case "modelserver":
			if pc.cfg.URL == "" {
				return fmt.Errorf("%s: model server URL is required", pc.role)
			}
		default:
			return fmt.Errorf("%s: unsupported predictor provider: %s", pc.role, pc.cfg.Provider)
		}
	}

	if c.Models.TimeoutSeconds <= 0 {
		return fmt.Errorf("models.timeout_seconds must be positive")
	}

	return nil
}

// interpolateEnvVars replaces ${VAR_NAME} with environment variable values.
func interpolateEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return match // Keep original if not set
	})
}
