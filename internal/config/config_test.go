package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Execution.DefaultTimeout != "60s" {
		t.Fatalf("expected 60s default timeout, got %s", cfg.Execution.DefaultTimeout)
	}
	if cfg.DefaultTimeoutDuration().Seconds() != 60 {
		t.Fatalf("expected 60s duration, got %v", cfg.DefaultTimeoutDuration())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "execution:\n  workers: 4\n  default_timeout: 30s\ngit:\n  nonblocking: true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Execution.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Execution.Workers)
	}
	if !cfg.Git.Nonblocking {
		t.Fatalf("expected nonblocking=true")
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[execution]\nworkers = 8\n\n[git]\nnonblocking = true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Execution.Workers != 8 {
		t.Fatalf("expected 8 workers, got %d", cfg.Execution.Workers)
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load on missing file should not error: %v", err)
	}
	if cfg.Execution.DefaultTimeout != "60s" {
		t.Fatalf("expected default config, got %+v", cfg)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyEnv([]string{
		"HUSKYCAT_TIMEOUT_SECONDS=90",
		"HUSKYCAT_WORKERS=2",
		"HUSKYCAT_NONBLOCKING=true",
	})

	if cfg.Execution.DefaultTimeout != "90s" {
		t.Fatalf("expected 90s, got %s", cfg.Execution.DefaultTimeout)
	}
	if cfg.Execution.Workers != 2 {
		t.Fatalf("expected 2 workers, got %d", cfg.Execution.Workers)
	}
	if !cfg.Git.Nonblocking {
		t.Fatalf("expected nonblocking override to apply")
	}
}
