// Package progress implements the Progress Renderer: a live TTY table driven
// by the Parallel Executor's callbacks, plus a no-op renderer for non-TTY
// contexts.
//
// It generalizes codeNERD's ShardPageModel (cmd/nerd/ui/shard_page.go) —
// a bubbles/table-backed tea.Model showing shard status rows — replacing
// "shard" rows with "tool" rows and the backpressure banner with an overall
// completion fraction.
package progress

import (
	"sync"
	"time"

	"github.com/tinyland-inc/huskycat/internal/result"
)

// Event is one status transition for a tool, delivered by the executor.
type Event struct {
	ToolName string
	Status   result.Status
	Elapsed  time.Duration
	Errors   int
	Warnings int
}

// Sink receives Events from any worker goroutine. Implementations must be
// safe for concurrent use (spec.md §4.6 concurrency contract).
type Sink interface {
	Update(ev Event)
	// Done signals the run has finished; implementations stop refreshing.
	Done()
}

// NoopSink consumes Events without producing output, used whenever standard
// output is not a terminal.
type NoopSink struct{}

func (NoopSink) Update(Event) {}
func (NoopSink) Done()        {}

// row is one tool's latest known state, as tracked by TableSink.
type row struct {
	name     string
	status   result.Status
	elapsed  time.Duration
	errors   int
	warnings int
}

// TableSink accumulates Events into a row set that a TTY renderer (the
// bubbletea program in render.go) redraws on each tick. It is deliberately
// separate from the tea.Model so Update can be called from executor workers
// under TableSink's own mutex, without touching bubbletea's single-threaded
// program loop; the renderer polls Snapshot instead of receiving pushes.
type TableSink struct {
	mu   sync.Mutex
	rows map[string]*row
	done bool
}

// NewTableSink returns an empty TableSink.
func NewTableSink() *TableSink {
	return &TableSink{rows: make(map[string]*row)}
}

func (t *TableSink) Update(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rows[ev.ToolName]
	if !ok {
		r = &row{name: ev.ToolName}
		t.rows[ev.ToolName] = r
	}
	r.status = ev.Status
	r.elapsed = ev.Elapsed
	r.errors = ev.Errors
	r.warnings = ev.Warnings
}

func (t *TableSink) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
}

// Snapshot is a point-in-time, render-friendly copy of every known row plus
// the overall completion fraction.
type Snapshot struct {
	Rows     []RowView
	Complete int
	Total    int
	Finished bool
}

// RowView is one row in a rendered Snapshot.
type RowView struct {
	ToolName string
	Status   result.Status
	Elapsed  time.Duration
	Errors   int
	Warnings int
}

func (t *TableSink) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{Finished: t.done, Total: len(t.rows)}
	for _, r := range t.rows {
		s.Rows = append(s.Rows, RowView{
			ToolName: r.name, Status: r.status, Elapsed: r.elapsed,
			Errors: r.errors, Warnings: r.warnings,
		})
		if r.status.Terminal() {
			s.Complete++
		}
	}
	return s
}
