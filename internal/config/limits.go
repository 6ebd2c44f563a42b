package config

import "fmt"

// CoreLimits bounds the Run Store's retention policy.
type CoreLimits struct {
	// RunRetentionDays is how many days of Run records and logs to keep
	// before the Run Store's garbage collection deletes them.
	RunRetentionDays int `yaml:"run_retention_days" toml:"run_retention_days" json:"run_retention_days"`
}

// GitConfig controls Git-hook-mode behavior.
type GitConfig struct {
	// Nonblocking mirrors the huskycat.nonblocking repo config flag from
	// spec.md §4.4: true selects git-hooks-nonblocking over
	// git-hooks-blocking.
	Nonblocking bool `yaml:"nonblocking" toml:"nonblocking" json:"nonblocking"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.CoreLimits.RunRetentionDays < 0 {
		return fmt.Errorf("core_limits.run_retention_days must be >= 0")
	}
	if c.Execution.Workers < 0 {
		return fmt.Errorf("execution.workers must be >= 0")
	}
	return nil
}
