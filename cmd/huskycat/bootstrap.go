package main

import (
	"context"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/tinyland-inc/huskycat/internal/config"
	"github.com/tinyland-inc/huskycat/internal/engine"
	"github.com/tinyland-inc/huskycat/internal/extractor"
	"github.com/tinyland-inc/huskycat/internal/huskyerr"
	"github.com/tinyland-inc/huskycat/internal/modeadapt"
	"github.com/tinyland-inc/huskycat/internal/modedetect"
	"github.com/tinyland-inc/huskycat/internal/registry"
	"github.com/tinyland-inc/huskycat/internal/runstore"
	"github.com/tinyland-inc/huskycat/internal/supervisor"
)

// exitCodeFor maps a command error to the process exit code spec.md §4.9
// assigns each error kind; an ungrounded error (one that never passed
// through huskyerr) falls back to 1.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if kind, ok := huskyerr.KindOf(err); ok {
		return huskyerr.ExitCode(kind)
	}
	return 1
}

// buildRegistry merges the embedded builtin tool catalog with a repo-local
// .huskycat/tools.yaml override, if present.
func buildRegistry(ws string) (*registry.Registry, error) {
	base, err := registry.LoadBuiltin()
	if err != nil {
		logError("load builtin tool catalog", err)
		return nil, err
	}

	tools := base
	overridePath := ws + "/.huskycat/tools.yaml"
	if raw, err := os.ReadFile(overridePath); err == nil {
		override, err := registry.LoadOverride(raw)
		if err != nil {
			logError("parse tools.yaml override", err)
			return nil, err
		}
		tools = registry.MergeCatalogs(base, override)
	}

	reg, err := registry.Build(tools)
	if err != nil {
		logError("build tool registry dependency graph", err)
		return nil, err
	}
	return reg, nil
}

// logError records err against the root command's zap logger, if one has
// been built yet (PersistentPreRunE runs before any subcommand, but
// buildRegistry is also reachable from tests that skip it).
func logError(action string, err error) {
	if logger != nil {
		logger.Error(action, zap.Error(err))
	}
}

// detectMode resolves the operating mode for this invocation from the
// --mode flag, HUSKYCAT_MODE, the invoked subcommand, and the ambient
// environment, per spec.md §4.4's fixed priority chain.
func detectMode(subcommand string, cfg *config.Config) modedetect.Mode {
	in := modedetect.DetectInput{
		ExplicitFlag:      modeFlag,
		EnvOverride:       os.Getenv("HUSKYCAT_MODE"),
		Subcommand:        subcommand,
		CI:                os.Getenv("CI"),
		GitlabCI:          os.Getenv("GITLAB_CI"),
		GithubActions:     os.Getenv("GITHUB_ACTIONS"),
		JenkinsURL:        os.Getenv("JENKINS_URL"),
		GitAuthorName:     os.Getenv("GIT_AUTHOR_NAME"),
		GitIndexFile:      os.Getenv("GIT_INDEX_FILE"),
		GitDir:            os.Getenv("GIT_DIR"),
		NonblockingConfig: cfg.Git.Nonblocking,
		StdoutIsTerminal:  isTerminal(os.Stdout),
	}
	mode := modedetect.Detect(in)
	if logger != nil {
		logger.Info("detected mode", zap.String("subcommand", subcommand), zap.String("mode", string(mode)))
	}
	return mode
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// newEngine wires one Engine from the resolved workspace, config, registry,
// tool extraction cache, and run store, ready to drive a Request. It also
// returns the config and registry it built, so callers needing the
// registry directly (the mcp-server tools/list surface) don't rebuild it.
func newEngine(ws string) (*engine.Engine, *config.Config, *registry.Registry, error) {
	cfg, err := config.LoadWorkspace(ws)
	if err != nil {
		return nil, nil, nil, err
	}

	reg, err := buildRegistry(ws)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := runstore.Open(ws)
	if err != nil {
		return nil, nil, nil, err
	}
	gcRunStore(store, cfg, ws)

	ext := &extractor.Extractor{
		CacheRoot: ws + "/.huskycat/cache",
		Assets:    nil,
		Version:   "builtin-v1",
	}
	var bundled map[string]string
	if ext.Assets != nil {
		bundled, _ = ext.EnsureExtracted(context.Background())
	}
	bundledPath := func(name string) (string, bool) {
		p, ok := bundled[name]
		return p, ok
	}

	eng := engine.New(engine.Options{
		Workspace:        ws,
		Config:           cfg,
		Registry:         reg,
		Store:            store,
		BundledPath:      bundledPath,
		SandboxReachable: sandboxReachable(),
	})
	return eng, cfg, reg, nil
}

// gcRunStore runs the Run Store's retention garbage collection and reaps
// stale PID files, per spec.md §4.10: "this garbage collection is invoked
// at the start of every run." Failures are logged, not fatal — a run that
// only wants status output must still succeed even if the Run Store
// cannot clean up.
func gcRunStore(store *runstore.Store, cfg *config.Config, ws string) {
	maxAge := time.Duration(cfg.CoreLimits.RunRetentionDays) * 24 * time.Hour
	if err := store.GC(maxAge); err != nil {
		logError("garbage-collect run store", err)
	}
	if _, err := supervisor.ReapStale(ws); err != nil {
		logError("reap stale pid files", err)
	}
}

// sandboxReachable reports whether a configured sandbox runtime responds,
// by running the HUSKYCAT_SANDBOX_PROBE shell command if set. A sandbox runtime is an external
// collaborator huskycat only routes into, never manages.
func sandboxReachable() bool {
	probe := os.Getenv("HUSKYCAT_SANDBOX_PROBE")
	if probe == "" {
		return false
	}
	return exec.Command("sh", "-c", probe).Run() == nil
}

// adapterFor resolves the mode adapter to drive a Request with, overriding
// its ToolFilter to "all" when --all was passed.
func adapterFor(mode modedetect.Mode, all bool) modeadapt.Adapter {
	a := modeadapt.ForMode(mode)
	if all {
		a.ToolFilter = modeadapt.FilterAll
	}
	return a
}
