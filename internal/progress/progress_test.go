package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/tinyland-inc/huskycat/internal/result"
)

func TestNoopSinkDiscardsEvents(t *testing.T) {
	var sink NoopSink
	sink.Update(Event{ToolName: "gofmt", Status: result.StatusSuccess})
	sink.Done()
	// Nothing to assert beyond "does not panic" — a no-op sink has no
	// observable state.
}

func TestTableSinkTracksLatestStatusPerTool(t *testing.T) {
	sink := NewTableSink()
	sink.Update(Event{ToolName: "gofmt", Status: result.StatusRunning})
	sink.Update(Event{ToolName: "gofmt", Status: result.StatusSuccess, Elapsed: 2 * time.Second})

	snap := sink.Snapshot()
	if len(snap.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(snap.Rows))
	}
	if snap.Rows[0].Status != result.StatusSuccess {
		t.Fatalf("expected latest status to win, got %s", snap.Rows[0].Status)
	}
}

func TestTableSinkCompleteFraction(t *testing.T) {
	sink := NewTableSink()
	sink.Update(Event{ToolName: "gofmt", Status: result.StatusSuccess})
	sink.Update(Event{ToolName: "mypy", Status: result.StatusRunning})

	snap := sink.Snapshot()
	if snap.Total != 2 {
		t.Fatalf("expected total=2, got %d", snap.Total)
	}
	if snap.Complete != 1 {
		t.Fatalf("expected complete=1 (only terminal statuses count), got %d", snap.Complete)
	}
}

func TestTableSinkDoneMarksFinished(t *testing.T) {
	sink := NewTableSink()
	sink.Done()
	if !sink.Snapshot().Finished {
		t.Fatal("expected Finished=true after Done")
	}
}

func TestTableSinkConcurrentUpdatesAreSafe(t *testing.T) {
	sink := NewTableSink()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sink.Update(Event{ToolName: "tool", Status: result.StatusRunning})
		}(i)
	}
	wg.Wait()

	snap := sink.Snapshot()
	if len(snap.Rows) != 1 {
		t.Fatalf("expected concurrent updates to the same tool to collapse to 1 row, got %d", len(snap.Rows))
	}
}
