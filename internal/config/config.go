// Package config loads the scriptform service configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that take precedence over the file.
const (
	EnvAddr     = "SCRIPTFORM_ADDR"
	EnvDatabase = "SCRIPTFORM_DATABASE"
	EnvLogLevel = "SCRIPTFORM_LOG_LEVEL"
)

// Config represents the scriptform configuration.
type Config struct {
	Addr         string `yaml:"addr"`
	Database     string `yaml:"database"`
	Definitions  string `yaml:"definitions"`
	StorageRoot  string `yaml:"storage_root"`
	TemplatesDir string `yaml:"templates_dir"`
	Log          Log    `yaml:"log"`
}

// Log configures the process logger. File enables rotation when non-empty.
type Log struct {
	Level       string `yaml:"level"`
	Environment string `yaml:"environment"`
	WithSource  bool   `yaml:"with_source"`
	File        string `yaml:"file"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days"`
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Addr:        ":8080",
		Database:    "scriptform.db",
		StorageRoot: "media",
		Log: Log{
			Level:       "info",
			Environment: "dev",
			MaxSizeMB:   100,
			MaxBackups:  3,
			MaxAgeDays:  28,
		},
	}
}

// Load reads configuration from the given path, falling back to defaults when
// the file is missing. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		c.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDatabase)); v != "" {
		c.Database = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
}

// Validate reports settings that cannot be used to start the service.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("config: addr is required")
	}
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("config: database is required")
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("config: log rotation limits must not be negative")
	}
	return nil
}
