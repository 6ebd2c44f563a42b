// Package supervisor implements the Process Supervisor: the non-blocking
// mode state machine that forks a detached child to run the full schedule
// while the parent returns to its caller in under 100ms.
//
// It generalizes codeNERD's Spawner (internal/session/spawner.go), which
// gated concurrent subagent creation behind an active-count limit and
// tracked per-subagent lifecycle state. Here there is exactly one child per
// invocation and the boundary being crossed is an OS process fork rather
// than a goroutine spawn, since the spec requires the child to outlive the
// parent's own process tree.
package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tinyland-inc/huskycat/internal/huskyerr"
)

// PidFile is the on-disk record of a running detached child.
type PidFile struct {
	Path  string
	RunID string
	PID   int
}

// pidFileDir returns <workspace>/.huskycat/pids.
func pidFileDir(workspace string) string {
	return filepath.Join(workspace, ".huskycat", "pids")
}

// pidFilePath returns the PID file path for runID.
func pidFilePath(workspace, runID string) string {
	return filepath.Join(pidFileDir(workspace), runID+".pid")
}

// WritePidFile atomically records pid for runID under workspace. Parent
// writes this immediately after fork, per the START→FORK→WRITE-PID→RETURN
// contract.
func WritePidFile(workspace, runID string, pid int) (*PidFile, error) {
	dir := pidFileDir(workspace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, huskyerr.Wrap(huskyerr.KindIO, err, "create pid directory")
	}

	path := pidFilePath(workspace, runID)
	tmp, err := os.CreateTemp(dir, runID+".*.tmp")
	if err != nil {
		return nil, huskyerr.Wrap(huskyerr.KindIO, err, "create temp pid file")
	}
	tmpPath := tmp.Name()
	if _, err := fmt.Fprintf(tmp, "%d", pid); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, huskyerr.Wrap(huskyerr.KindIO, err, "write temp pid file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, huskyerr.Wrap(huskyerr.KindIO, err, "close temp pid file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, huskyerr.Wrap(huskyerr.KindIO, err, "rename temp pid file into place")
	}

	return &PidFile{Path: path, RunID: runID, PID: pid}, nil
}

// DeletePidFile removes the PID file. The child deletes its own PID file at
// EXIT, per the ownership contract: "parent writes, child deletes."
func DeletePidFile(workspace, runID string) error {
	err := os.Remove(pidFilePath(workspace, runID))
	if err != nil && !os.IsNotExist(err) {
		return huskyerr.Wrap(huskyerr.KindIO, err, "delete pid file")
	}
	return nil
}

// ListPidFiles returns every PID file under workspace's pid directory.
func ListPidFiles(workspace string) ([]*PidFile, error) {
	dir := pidFileDir(workspace)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, huskyerr.Wrap(huskyerr.KindIO, err, "list pid directory")
	}

	var out []*PidFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		runID := trimPidExt(e.Name())
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var pid int
		if _, err := fmt.Sscanf(string(raw), "%d", &pid); err != nil {
			continue
		}
		out = append(out, &PidFile{Path: filepath.Join(dir, e.Name()), RunID: runID, PID: pid})
	}
	return out, nil
}

func trimPidExt(name string) string {
	const ext = ".pid"
	if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
		return name[:len(name)-len(ext)]
	}
	return name
}

// Alive reports whether the process owning a PidFile is still running,
// using signal 0 as a liveness probe (no signal is actually delivered).
func Alive(p *PidFile) bool {
	proc, err := os.FindProcess(p.PID)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// ReapStale removes any PID file under workspace whose process is no longer
// alive, returning the reaped run IDs. Called on every startup, per spec.md
// §4.8: "A stale PID file ... is removed on next startup."
func ReapStale(workspace string) ([]string, error) {
	pidFiles, err := ListPidFiles(workspace)
	if err != nil {
		return nil, err
	}

	var reaped []string
	for _, p := range pidFiles {
		if !Alive(p) {
			if err := os.Remove(p.Path); err == nil {
				reaped = append(reaped, p.RunID)
			}
		}
	}
	return reaped, nil
}

// ForkChild launches argv as a detached child: its own session leader, with
// stdio redirected away from the parent's controlling terminal, so that
// subsequent shell-level job control does not kill it when the parent's
// shell exits. Returns immediately with the child's PID; the parent must
// still write the PID file and return within the 100ms budget.
func ForkChild(argv []string, workdir string, env []string) (pid int, err error) {
	if len(argv) == 0 {
		return 0, huskyerr.New(huskyerr.KindConfiguration, "ForkChild: empty argv")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = workdir
	cmd.Env = env
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, huskyerr.Wrap(huskyerr.KindInvocation, err, "start detached child")
	}

	// Release the child from the parent's process table entry; the
	// supervisor never waits on it — the child persists its own outcome
	// to the Run Store.
	go cmd.Process.Release()

	return cmd.Process.Pid, nil
}

// PriorRun describes the most recently finalized run for the CHECK-PRIOR
// step, surfaced by the caller from the Run Store.
type PriorRun struct {
	RunID      string
	Failed     bool
	Incomplete bool
	Summary    string
}

// Decision is the CHECK-PRIOR outcome.
type Decision string

const (
	DecisionProceed Decision = "proceed"
	DecisionAbort   Decision = "abort"
)

// Prompter asks the user whether to proceed given a prior run's outcome.
// Implementations bound their own wait on user input; the supervisor's
// 100ms contract explicitly excludes time spent here.
type Prompter func(prior PriorRun) Decision

// CheckPrior decides whether to proceed given a possibly-nil prior run and
// whether the current context permits prompting. In non-interactive
// contexts a prior failure is reported (via report) but never blocks the
// new run.
func CheckPrior(prior *PriorRun, interactive bool, prompt Prompter, report func(PriorRun)) Decision {
	if prior == nil || (!prior.Failed && !prior.Incomplete) {
		return DecisionProceed
	}

	if !interactive {
		if report != nil {
			report(*prior)
		}
		return DecisionProceed
	}

	if prompt == nil {
		return DecisionProceed
	}
	return prompt(*prior)
}

// WithinBudget reports whether elapsed is within the 100ms parent-return
// contract, for S5-style test assertions.
func WithinBudget(elapsed time.Duration) bool {
	return elapsed <= 100*time.Millisecond
}
