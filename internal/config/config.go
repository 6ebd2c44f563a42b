// Package config loads huskycat's repo-level configuration from
// .huskycat/config.yaml (or the BurntSushi/toml-parsed .huskycat/config.toml
// alternate) and applies HUSKYCAT_* environment overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds all huskycat configuration.
type Config struct {
	// Execution settings: worker pool size, default per-tool deadline.
	Execution ExecutionConfig `yaml:"execution" toml:"execution"`

	// Logging settings for internal/logging.
	Logging LoggingConfig `yaml:"logging" toml:"logging"`

	// CoreLimits bounds run-store retention.
	CoreLimits CoreLimits `yaml:"core_limits" toml:"core_limits"`

	// Git controls hook-mode behavior.
	Git GitConfig `yaml:"git" toml:"git"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Execution: ExecutionConfig{
			Workers:           0, // 0 means "hardware thread count"
			DefaultTimeout:    "60s",
			ExtractionTimeout: "30s",
		},
		Logging: LoggingConfig{
			DebugMode:  false,
			Level:      "info",
			JSONFormat: false,
		},
		CoreLimits: CoreLimits{
			RunRetentionDays: 14,
		},
		Git: GitConfig{
			Nonblocking: false,
		},
	}
}

// Load reads a config file at path, choosing YAML or TOML by extension, and
// falling back to DefaultConfig() if the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse toml config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	}

	return cfg, nil
}

// LoadWorkspace loads .huskycat/config.yaml (preferred) or
// .huskycat/config.toml from the given workspace root, then applies
// environment overrides.
func LoadWorkspace(workspace string) (*Config, error) {
	yamlPath := filepath.Join(workspace, ".huskycat", "config.yaml")
	tomlPath := filepath.Join(workspace, ".huskycat", "config.toml")

	path := yamlPath
	if _, err := os.Stat(yamlPath); os.IsNotExist(err) {
		if _, err := os.Stat(tomlPath); err == nil {
			path = tomlPath
		}
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Environ())
	return cfg, nil
}

// ApplyEnv overlays HUSKYCAT_* environment overrides described in spec.md §6.
func (c *Config) ApplyEnv(environ []string) {
	env := map[string]string{}
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}

	if v, ok := env["HUSKYCAT_TIMEOUT_SECONDS"]; ok {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Execution.DefaultTimeout = fmt.Sprintf("%ds", secs)
		}
	}
	if v, ok := env["HUSKYCAT_WORKERS"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Execution.Workers = n
		}
	}
	if v, ok := env["HUSKYCAT_NONBLOCKING"]; ok {
		c.Git.Nonblocking = isTruthy(v)
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// DefaultTimeoutDuration parses Execution.DefaultTimeout, falling back to 60s
// on a malformed value.
func (c *Config) DefaultTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Execution.DefaultTimeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}
