package runstore

import (
	"testing"
	"time"

	"github.com/tinyland-inc/huskycat/internal/result"
)

func TestOpenCreatesDirectoryTree(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if store.Root == "" {
		t.Fatal("expected non-empty root")
	}
}

func TestPersistAndLoadRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	finished := time.Now()
	run := result.Run{
		RunID:            "20260101T000000-abcd1234",
		StartedAt:        finished.Add(-time.Second),
		FinishedAt:       &finished,
		Mode:             "cli",
		TargetPaths:      []string{"file.py"},
		ToolListSelected: []string{"formatter"},
		Success:          true,
	}

	if err := store.Persist(run); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	loaded, err := store.Load(run.RunID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.RunID != run.RunID || !loaded.Success {
		t.Fatalf("unexpected loaded run: %+v", loaded)
	}

	ptr, err := store.LastRun()
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if ptr == nil || ptr.RunID != run.RunID {
		t.Fatalf("unexpected last_run pointer: %+v", ptr)
	}
}

func TestLastRunNilWhenNeverPersisted(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ptr, err := store.LastRun()
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if ptr != nil {
		t.Fatalf("expected nil pointer, got %+v", ptr)
	}
}

func TestIncompleteDistinguishesUnfinishedRun(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	unfinished := result.Run{RunID: "run-unfinished", StartedAt: time.Now()}
	if err := store.Persist(unfinished); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	incomplete, err := store.Incomplete(unfinished.RunID)
	if err != nil {
		t.Fatalf("Incomplete: %v", err)
	}
	if !incomplete {
		t.Fatal("expected run with no FinishedAt to be incomplete")
	}

	finished := time.Now()
	done := result.Run{RunID: "run-done", StartedAt: finished.Add(-time.Second), FinishedAt: &finished}
	if err := store.Persist(done); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	incomplete, err = store.Incomplete(done.RunID)
	if err != nil {
		t.Fatalf("Incomplete: %v", err)
	}
	if incomplete {
		t.Fatal("expected finished run to not be incomplete")
	}
}

func TestIncompleteUnknownRunIsFalse(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	incomplete, err := store.Incomplete("does-not-exist")
	if err != nil {
		t.Fatalf("Incomplete: %v", err)
	}
	if incomplete {
		t.Fatal("expected unknown run to report not incomplete")
	}
}

func TestGCDeletesOldRuns(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	finished := time.Now()
	run := result.Run{RunID: "old-run", StartedAt: finished.Add(-time.Hour), FinishedAt: &finished}
	if err := store.Persist(run); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	if err := store.GC(0); err != nil {
		t.Fatalf("GC: %v", err)
	}

	if _, err := store.Load(run.RunID); err == nil {
		t.Fatal("expected old run to be garbage collected")
	}

	ptr, err := store.LastRun()
	if err != nil {
		t.Fatalf("LastRun after GC: %v", err)
	}
	if ptr == nil {
		t.Fatal("expected last_run.json to survive GC")
	}
}
