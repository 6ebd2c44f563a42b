// Package engine wires the Tool Registry, Execution Router, Parallel
// Executor, and invocation backend into the single entry point every
// surface (the validate subcommand, the git hook shims, the Agent RPC
// Dispatcher) drives a run through.
//
// It has no direct teacher analog — codeNERD's closest shape is the
// OODA-loop glue in cmd/nerd/cmd_instruction.go, which likewise sits
// between a cobra command and the subsystems doing the real work — but the
// control flow here (detect mode, resolve files, route, schedule, persist)
// is new, built from the components each generalize their own teacher file.
package engine

import (
	"context"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/tinyland-inc/huskycat/internal/config"
	"github.com/tinyland-inc/huskycat/internal/executor"
	"github.com/tinyland-inc/huskycat/internal/invoke"
	"github.com/tinyland-inc/huskycat/internal/modeadapt"
	"github.com/tinyland-inc/huskycat/internal/modedetect"
	"github.com/tinyland-inc/huskycat/internal/progress"
	"github.com/tinyland-inc/huskycat/internal/registry"
	"github.com/tinyland-inc/huskycat/internal/result"
	"github.com/tinyland-inc/huskycat/internal/router"
	"github.com/tinyland-inc/huskycat/internal/rpc"
	"github.com/tinyland-inc/huskycat/internal/runstore"
)

// Options configures an Engine for the lifetime of one process.
type Options struct {
	Workspace   string
	Config      *config.Config
	Registry    *registry.Registry
	Store       *runstore.Store
	BundledPath func(name string) (string, bool)

	// SandboxReachable and InSandbox feed the Execution Router's host-state
	// detection; both default false (no sandbox runtime configured),
	// which is a correct and safe default since sandbox runtimes remain an
	// external collaborator the orchestrator only routes into.
	SandboxReachable bool
	InSandbox        bool
	Sandbox          invoke.SandboxRunner
}

// Engine is the wired validation pipeline.
type Engine struct {
	opts Options

	// testInvoke, when set, replaces the real invoke.Invoker backend. It
	// exists only so package tests can exercise Run's discovery/routing/
	// scheduling logic without spawning real processes.
	testInvoke executor.InvokeFunc
}

// New returns an Engine over opts.
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Request is one validation invocation.
type Request struct {
	Paths   []string
	Staged  bool
	Fix     bool
	Only    string // restrict the run to a single registered tool
	Adapter modeadapt.Adapter

	// Progress, if non-nil, receives per-tool status transitions as the
	// run executes.
	Progress progress.Sink
}

// Run resolves req's target files, routes and schedules every applicable
// tool, and returns the finalized Run. If the Engine has a Run Store
// configured, the Run is persisted before returning.
func (e *Engine) Run(ctx context.Context, req Request) (result.Run, error) {
	started := time.Now()
	runID := started.Format("20060102T150405") + "-" + uuid.NewString()[:8]

	targetFiles, targetPaths, err := e.resolveTargets(ctx, req)
	if err != nil {
		return result.Run{}, err
	}

	tools := e.selectTools(req.Adapter.ToolFilter, req.Only)
	host := router.DetectHostState("HUSKYCAT_SANDBOX", filepath.Join(e.opts.Workspace, ".huskycat", "sandbox-marker"), e.opts.SandboxReachable, e.opts.BundledPath)
	if e.opts.InSandbox {
		host.InSandbox = true
	}

	var invocations []executor.Invocation
	var toolNames []string
	for _, tool := range tools {
		files := filterMatching(tool, targetFiles)
		if len(files) == 0 {
			continue
		}
		target := files[0]
		if len(files) > 1 {
			target = "<batch>"
		}
		invocations = append(invocations, executor.Invocation{
			Tool:    tool,
			Verdict: router.Route(tool, host),
			Target:  target,
			Files:   files,
		})
		toolNames = append(toolNames, tool.Name)
	}

	invokeFn := e.testInvoke
	if invokeFn == nil {
		invoker := &invoke.Invoker{BundledPath: e.opts.BundledPath, Sandbox: e.opts.Sandbox, Workspace: e.opts.Workspace}
		invokeFn = invoker.Invoke
	}

	sink := req.Progress
	if sink == nil {
		sink = progress.NoopSink{}
	}

	plan := executor.Plan{
		Invocations:    invocations,
		Invoke:         invokeFn,
		Workers:        e.workers(),
		DefaultTimeout: e.defaultTimeout(),
		FailFast:       req.Adapter.FailFast,
		Fix:            req.Fix,
		OnProgress: func(ev executor.ProgressEvent) {
			sink.Update(progress.Event{ToolName: ev.ToolName, Status: ev.Status})
		},
	}

	agg := executor.Run(ctx, plan)
	sink.Done()

	finished := time.Now()
	mode := string(req.Adapter.Mode)
	run := agg.Finalize(runID, mode, targetPaths, toolNames, started, finished)

	if e.opts.Store != nil {
		if err := e.opts.Store.Persist(run); err != nil {
			return run, err
		}
	}

	return run, nil
}

// Validate implements rpc.Runner, fixing the adapter to the agent-rpc
// policy row regardless of the caller's own environment.
func (e *Engine) Validate(ctx context.Context, req rpc.ValidateRequest) (result.Run, error) {
	paths := []string{req.Path}
	if req.Path == "" {
		paths = []string{e.opts.Workspace}
	}
	return e.Run(ctx, Request{
		Paths:   paths,
		Staged:  req.Staged,
		Fix:     req.Fix,
		Only:    req.Tool,
		Adapter: agentRPCAdapter(),
	})
}

func (e *Engine) resolveTargets(ctx context.Context, req Request) (files []string, displayPaths []string, err error) {
	if req.Staged {
		files, err = stagedFiles(ctx, e.opts.Workspace)
		return files, []string{"<staged>"}, err
	}

	paths := req.Paths
	if len(paths) == 0 {
		paths = []string{e.opts.Workspace}
	}
	files, err = discoverFiles(paths)
	return files, paths, err
}

func (e *Engine) selectTools(filter modeadapt.ToolFilter, only string) []registry.Tool {
	if only != "" {
		if t, ok := e.opts.Registry.Lookup(only); ok {
			return []registry.Tool{t}
		}
		return nil
	}

	all := e.opts.Registry.All()
	if filter != modeadapt.FilterFast {
		return all
	}

	var fast []registry.Tool
	for _, t := range all {
		if t.EstimatedCost <= 2 {
			fast = append(fast, t)
		}
	}
	return fast
}

func (e *Engine) defaultTimeout() time.Duration {
	if e.opts.Config == nil {
		return 60 * time.Second
	}
	return e.opts.Config.DefaultTimeoutDuration()
}

func (e *Engine) workers() int {
	if e.opts.Config != nil && e.opts.Config.Execution.Workers > 0 {
		return e.opts.Config.Execution.Workers
	}
	return runtime.NumCPU()
}

func filterMatching(tool registry.Tool, files []string) []string {
	var out []string
	for _, f := range files {
		base := filepath.Base(f)
		for _, pattern := range tool.Matcher {
			okBase, _ := filepath.Match(pattern, base)
			okFull, _ := filepath.Match(pattern, f)
			if okBase || okFull {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

func agentRPCAdapter() modeadapt.Adapter {
	return modeadapt.Adapter{
		Mode:          modedetect.ModeAgentRPC,
		OutputFormat:  modeadapt.FormatJSONRPC,
		Interactivity: modeadapt.InteractNone,
		ToolFilter:    modeadapt.FilterAll,
		FailFast:      false,
		EmitProgress:  false,
	}
}
