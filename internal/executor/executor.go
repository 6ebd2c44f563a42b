// Package executor implements the Parallel Executor: a DAG scheduler that
// runs a selected tool set over a file set with bounded concurrency,
// honoring dependencies, per-tool deadlines, and fail-fast.
//
// It generalizes codeNERD's SpawnQueue (internal/core/spawn_queue.go) —
// priority-ordered, backpressure-aware goroutine dispatch — replacing
// shard-spawn priority with DAG-dependency eligibility, and borrows
// internal/tools/shell/execute.go's context.WithTimeout deadline pattern,
// applied per tool invocation.
package executor

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tinyland-inc/huskycat/internal/registry"
	"github.com/tinyland-inc/huskycat/internal/result"
	"github.com/tinyland-inc/huskycat/internal/router"
)

// ProgressEvent is delivered to OnProgress whenever a tool changes state.
// OnProgress may be called from any worker goroutine; implementations must
// be safe for concurrent use (spec.md §4.6 concurrency contract).
type ProgressEvent struct {
	ToolName string
	Status   result.Status
}

// Invocation is what a worker needs to run one tool and produce its Result:
// the tool itself, the Execution Router's verdict for it, and the target
// (a file path, or "<batch>" for whole-tree invocations).
type Invocation struct {
	Tool    registry.Tool
	Verdict router.Verdict
	Target  string

	// Files is the concrete file list this invocation covers, substituted
	// into the tool's "{files}" invocation-template placeholder. Target is
	// the display label (a single path, or "<batch>" when Files holds more
	// than one entry); Files is what actually gets argv'd to the process.
	Files []string
}

// InvokeFunc actually runs a tool against the process, honoring ctx's
// deadline. Swapped out for a fake in tests.
type InvokeFunc func(ctx context.Context, inv Invocation, fix bool) result.Result

// Plan is everything the Scheduler needs for one run.
type Plan struct {
	Invocations    []Invocation
	Invoke         InvokeFunc
	Workers        int
	DefaultTimeout time.Duration
	FailFast       bool
	Fix            bool
	OnProgress     func(ProgressEvent)
}

type toolOutcome struct {
	inv Invocation
	res result.Result
}

// scheduler holds the mutable state of one Run call.
type scheduler struct {
	plan       Plan
	aggregator *result.Aggregator
}

// Run executes plan's invocations to completion, respecting the dependency
// DAG, bounded concurrency, per-tool deadlines, and fail-fast. It returns
// once every invocation has reached a terminal status.
func Run(ctx context.Context, plan Plan) *result.Aggregator {
	// Eligible tools are dispatched higher estimated cost first, then
	// alphabetically by tool name.
	invs := append([]Invocation(nil), plan.Invocations...)
	sort.SliceStable(invs, func(i, j int) bool {
		ci, cj := invs[i].Tool.EstimatedCost, invs[j].Tool.EstimatedCost
		if ci != cj {
			return ci > cj
		}
		return invs[i].Tool.Name < invs[j].Tool.Name
	})
	plan.Invocations = invs

	s := &scheduler{plan: plan, aggregator: result.NewAggregator()}
	return s.run(ctx)
}

func (s *scheduler) run(ctx context.Context) *result.Aggregator {
	workers := s.plan.Workers
	if workers <= 0 {
		workers = 4
	}
	sem := semaphore.NewWeighted(int64(workers))

	terminalStatus := make(map[string]string, len(s.plan.Invocations))
	var terminalMu sync.Mutex

	done := make(chan toolOutcome, len(s.plan.Invocations))
	started := make(map[int]bool, len(s.plan.Invocations))
	var wg sync.WaitGroup
	failFastTriggered := false
	remaining := len(s.plan.Invocations)

	finalize := func(inv Invocation, res result.Result) {
		terminalMu.Lock()
		terminalStatus[inv.Tool.Name] = string(res.Status)
		terminalMu.Unlock()

		s.aggregator.Add(res)
		if s.plan.OnProgress != nil {
			s.plan.OnProgress(ProgressEvent{ToolName: inv.Tool.Name, Status: res.Status})
		}
		remaining--
		if s.plan.FailFast && (res.Status == result.StatusFailed || res.Status == result.StatusTimeout) {
			failFastTriggered = true
		}
	}

	immediate := func(inv Invocation, status result.Status, reason string) result.Result {
		now := time.Now()
		return result.Result{
			ToolName: inv.Tool.Name, Target: inv.Target, Status: status,
			SkipReason: reason, StartedAt: now, FinishedAt: now,
		}
	}

	// Pre-pass: unavailable verdicts are terminal immediately, without
	// consuming a worker.
	for i, inv := range s.plan.Invocations {
		if inv.Verdict == router.VerdictUnavailable {
			started[i] = true
			finalize(inv, immediate(inv, result.StatusUnavailable, "tool unavailable on this host"))
		}
	}

	for remaining > 0 {
		for i, inv := range s.plan.Invocations {
			if started[i] {
				continue
			}

			terminalMu.Lock()
			blockedBy, blocked := registry.DependedOnFailed(inv.Tool, terminalStatus)
			depsReady := allTerminalLocked(inv.Tool.Dependencies, terminalStatus)
			terminalMu.Unlock()

			switch {
			case blocked:
				started[i] = true
				finalize(inv, immediate(inv, result.StatusSkipped, "blocked by dependency "+blockedBy))
			case !depsReady:
				// Not yet eligible; revisit after the next completion.
			case failFastTriggered:
				started[i] = true
				finalize(inv, immediate(inv, result.StatusSkipped, "fail-fast: a prior tool failed"))
			case !sem.TryAcquire(1):
				// Every worker is busy; revisit after the next completion.
			default:
				started[i] = true
				wg.Add(1)
				go s.runOne(ctx, sem, &wg, inv, done)
			}
		}

		if remaining == 0 {
			break
		}

		// At least one invocation is in flight (every not-yet-terminal
		// invocation is either ineligible, waiting for a free worker, or
		// already dispatched);
		// block for the next completion before rescanning eligibility,
		// per spec.md §4.6: "recomputed each time any tool reaches a
		// terminal state."
		out := <-done
		finalize(out.inv, out.res)
	}

	wg.Wait()
	return s.aggregator
}

func allTerminalLocked(deps []string, terminalStatus map[string]string) bool {
	for _, dep := range deps {
		if _, ok := terminalStatus[dep]; !ok {
			return false
		}
	}
	return true
}

func (s *scheduler) runOne(ctx context.Context, sem *semaphore.Weighted, wg *sync.WaitGroup, inv Invocation, done chan<- toolOutcome) {
	defer wg.Done()

	// The scheduler acquired this worker slot before dispatch; it is released
	// before the outcome is reported, so the next rescan sees the slot free.
	if ctx.Err() != nil {
		sem.Release(1)
		now := time.Now()
		done <- toolOutcome{inv: inv, res: result.Result{
			ToolName: inv.Tool.Name, Target: inv.Target, Status: result.StatusSkipped,
			SkipReason: "cancelled", StartedAt: now, FinishedAt: now,
		}}
		return
	}

	timeout := registry.Timeout(inv.Tool, s.defaultTimeout())
	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if s.plan.OnProgress != nil {
		s.plan.OnProgress(ProgressEvent{ToolName: inv.Tool.Name, Status: result.StatusRunning})
	}

	started := time.Now()
	res := s.plan.Invoke(toolCtx, inv, s.plan.Fix)
	res.ToolName = inv.Tool.Name
	res.Target = inv.Target
	res.StartedAt = started
	res.FinishedAt = time.Now()

	if toolCtx.Err() == context.DeadlineExceeded {
		res.Status = result.StatusTimeout
	}

	sem.Release(1)
	done <- toolOutcome{inv: inv, res: res}
}

func (s *scheduler) defaultTimeout() time.Duration {
	if s.plan.DefaultTimeout <= 0 {
		return 60 * time.Second
	}
	return s.plan.DefaultTimeout
}
