// Package result implements the Result Model & Aggregator: the per-tool
// outcome record, the run-scoped collection, and serializers for the five
// surface formats.
//
// It generalizes codeNERD's SpawnResult/mutex-guarded commit idiom
// (internal/core/spawn_queue.go), replacing "shard spawn outcome" with
// "tool invocation outcome" and adding the multi-format serialization layer
// the orchestrator's adapters require.
package result

import (
	"sync"
	"time"
)

// Status is the terminal (or pending/running) state of a Result.
type Status string

const (
	StatusPending     Status = "pending"
	StatusRunning     Status = "running"
	StatusSuccess     Status = "success"
	StatusFailed      Status = "failed"
	StatusSkipped     Status = "skipped"
	StatusTimeout     Status = "timeout"
	StatusUnavailable Status = "unavailable"
)

// Terminal reports whether s is one of the terminal statuses a tool ends
// in once its worker slot is released.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusSkipped, StatusTimeout, StatusUnavailable:
		return true
	default:
		return false
	}
}

// Result is the outcome of one tool on one file (or file batch).
type Result struct {
	ToolName      string        `json:"tool_name"`
	Target        string        `json:"target"` // file path, or "<batch>"
	Status        Status        `json:"status"`
	ErrorCount    int           `json:"error_count"`
	WarningCount  int           `json:"warning_count"`
	Duration      time.Duration `json:"duration_ns"`
	Stdout        string        `json:"stdout,omitempty"`
	Stderr        string        `json:"stderr,omitempty"`
	Fixed         bool          `json:"fixed,omitempty"`
	SkipReason    string        `json:"skip_reason,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
}

// Run is one orchestrator invocation.
type Run struct {
	RunID           string     `json:"run_id"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Mode            string     `json:"mode"`
	TargetPaths     []string   `json:"target_paths"`
	ToolListSelected []string  `json:"tool_list_selected"`
	Results         []Result   `json:"results"`
	Summary         Summary    `json:"summary"`
	Success         bool       `json:"success"`
}

// Summary is the aggregated count/duration view over a Run's Results.
type Summary struct {
	Total            int           `json:"total"`
	Success          int           `json:"success"`
	Failed           int           `json:"failed"`
	Skipped          int           `json:"skipped"`
	Timeout          int           `json:"timeout"`
	Unavailable      int           `json:"unavailable"`
	ErrorCountSum    int           `json:"error_count_sum"`
	WarningCountSum  int           `json:"warning_count_sum"`
	DurationSum      time.Duration `json:"duration_sum_ns"`
	WallClock        time.Duration `json:"wall_clock_ns"`
}

// Aggregator accumulates Results for one Run under a mutex, since worker
// goroutines commit concurrently (spec.md §4.7 concurrency contract).
type Aggregator struct {
	mu      sync.Mutex
	results []Result
	seen    map[string]bool // (tool-name, target) dedup, invariant (ii)
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{seen: make(map[string]bool)}
}

// Add appends r to the run, enforcing the no-duplicate-(tool,target)
// invariant. Adding a duplicate is a caller bug and panics, since it would
// silently corrupt the Run's invariant (ii).
func (a *Aggregator) Add(r Result) {
	key := r.ToolName + "\x00" + r.Target
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seen[key] {
		panic("result: duplicate (tool-name, target) added to aggregator: " + key)
	}
	a.seen[key] = true
	a.results = append(a.results, r)
}

// Results returns a snapshot copy of the accumulated Results.
func (a *Aggregator) Results() []Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Result, len(a.results))
	copy(out, a.results)
	return out
}

// Summarize computes the Summary over the current Results, plus wallClock
// (the caller-measured run duration, since the aggregator has no notion of
// "run start").
func (a *Aggregator) Summarize(wallClock time.Duration) Summary {
	results := a.Results()
	var s Summary
	s.Total = len(results)
	s.WallClock = wallClock
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			s.Success++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusTimeout:
			s.Timeout++
		case StatusUnavailable:
			s.Unavailable++
		}
		s.ErrorCountSum += r.ErrorCount
		s.WarningCountSum += r.WarningCount
		s.DurationSum += r.Duration
	}
	return s
}

// Finalize builds the Run record: runID/mode/targetPaths/toolList are
// supplied by the caller (internal/engine), startedAt/finishedAt
// bound the run, and success follows invariant (iii): false iff any result
// has status in {failed, timeout}.
func (a *Aggregator) Finalize(runID, mode string, targetPaths, toolList []string, startedAt, finishedAt time.Time) Run {
	results := a.Results()
	summary := a.Summarize(finishedAt.Sub(startedAt))

	success := true
	for _, r := range results {
		if r.Status == StatusFailed || r.Status == StatusTimeout {
			success = false
			break
		}
	}

	f := finishedAt
	return Run{
		RunID:            runID,
		StartedAt:        startedAt,
		FinishedAt:       &f,
		Mode:             mode,
		TargetPaths:      targetPaths,
		ToolListSelected: toolList,
		Results:          results,
		Summary:          summary,
		Success:          success,
	}
}
