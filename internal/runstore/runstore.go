// Package runstore implements the Run Store: the on-disk persistence layer
// for Run records, per-run log paths, and the last_run pointer, under
// <repo>/.huskycat/runs/. PID files are not kept here: internal/supervisor
// writes them under <repo>/.huskycat/pids/.
//
// It generalizes the atomic-write idiom used throughout codeNERD's
// internal/logging/logger.go (temp file + rename) and internal/core's
// persistence helpers. It does not watch files for changes.
package runstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/tinyland-inc/huskycat/internal/huskyerr"
	"github.com/tinyland-inc/huskycat/internal/result"
)

// Store is the Run Store rooted at <workspace>/.huskycat/runs.
type Store struct {
	Root string
}

// Open returns a Store rooted under workspace, creating its directory tree
// if necessary.
func Open(workspace string) (*Store, error) {
	root := filepath.Join(workspace, ".huskycat", "runs")
	for _, sub := range []string{"", "logs"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, huskyerr.Wrap(huskyerr.KindIO, err, "create run store directory")
		}
	}
	return &Store{Root: root}, nil
}

func (s *Store) runPath(runID string) string {
	return filepath.Join(s.Root, runID+".json")
}

func (s *Store) lastRunPath() string {
	return filepath.Join(s.Root, "last_run.json")
}

// LogPath returns the raw captured-output log path for runID.
func (s *Store) LogPath(runID string) string {
	return filepath.Join(s.Root, "logs", runID+".log")
}

// lastRunPointer is the contents of last_run.json.
type lastRunPointer struct {
	RunID      string     `json:"run_id"`
	Success    bool       `json:"success"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// atomicWrite writes data to path via temp file + rename, the pattern used
// for every Run Store write (spec.md §4.10).
func atomicWrite(dir, pattern, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return huskyerr.Wrap(huskyerr.KindIO, err, "create temp file for %s", path)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return huskyerr.Wrap(huskyerr.KindIO, err, "write temp file for %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return huskyerr.Wrap(huskyerr.KindIO, err, "close temp file for %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return huskyerr.Wrap(huskyerr.KindIO, err, "rename temp file into %s", path)
	}
	return nil
}

// Persist writes run's record and updates last_run.json, both atomically.
// Per spec.md §7: "concurrent orchestrator invocations ... may race on
// last_run.json — the later writer wins, which is acceptable."
func (s *Store) Persist(run result.Run) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return huskyerr.Wrap(huskyerr.KindIO, err, "marshal run %s", run.RunID)
	}
	if err := atomicWrite(s.Root, run.RunID+".*.tmp", s.runPath(run.RunID), data); err != nil {
		return err
	}

	ptr := lastRunPointer{RunID: run.RunID, Success: run.Success, FinishedAt: run.FinishedAt}
	ptrData, err := json.MarshalIndent(ptr, "", "  ")
	if err != nil {
		return huskyerr.Wrap(huskyerr.KindIO, err, "marshal last_run pointer")
	}
	return atomicWrite(s.Root, "last_run.*.tmp", s.lastRunPath(), ptrData)
}

// readWithRetry reads path, retrying once after a short delay to tolerate a
// reader racing a concurrent atomic rename (spec.md §4.10: "Readers tolerate
// partial writes by retrying once").
func readWithRetry(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if os.IsNotExist(err) {
		return nil, err
	}
	time.Sleep(20 * time.Millisecond)
	return os.ReadFile(path)
}

// LastRun reads the last_run.json pointer. Returns (nil, nil) if no run has
// ever been persisted.
func (s *Store) LastRun() (*lastRunPointer, error) {
	data, err := readWithRetry(s.lastRunPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, huskyerr.Wrap(huskyerr.KindIO, err, "read last_run pointer")
	}
	var ptr lastRunPointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return nil, huskyerr.Wrap(huskyerr.KindIO, err, "parse last_run pointer")
	}
	return &ptr, nil
}

// Load reads the full Run record for runID.
func (s *Store) Load(runID string) (*result.Run, error) {
	data, err := readWithRetry(s.runPath(runID))
	if err != nil {
		return nil, huskyerr.Wrap(huskyerr.KindIO, err, "read run %s", runID)
	}
	var run result.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, huskyerr.Wrap(huskyerr.KindIO, err, "parse run %s", runID)
	}
	return &run, nil
}

// Incomplete reports whether runID's record, if any, represents a run whose
// child was killed mid-way (no FinishedAt recorded), distinct from a run
// that completed and merely failed.
func (s *Store) Incomplete(runID string) (bool, error) {
	run, err := s.Load(runID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return run.FinishedAt == nil, nil
}

// GC deletes Run records older than maxAge and removes their log files.
// Invoked at the start of every run (spec.md §4.10 retention policy).
func (s *Store) GC(maxAge time.Duration) error {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return huskyerr.Wrap(huskyerr.KindIO, err, "list run store for gc")
	}

	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if e.IsDir() || e.Name() == "last_run.json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		runID := trimJSONExt(e.Name())
		os.Remove(filepath.Join(s.Root, e.Name()))
		os.Remove(s.LogPath(runID))
	}
	return nil
}

func trimJSONExt(name string) string {
	const ext = ".json"
	if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
		return name[:len(name)-len(ext)]
	}
	return name
}
