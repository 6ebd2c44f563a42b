package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tinyland-inc/huskycat/internal/engine"
	"github.com/tinyland-inc/huskycat/internal/modeadapt"
	"github.com/tinyland-inc/huskycat/internal/modedetect"
	"github.com/tinyland-inc/huskycat/internal/progress"
	"github.com/tinyland-inc/huskycat/internal/result"
	"github.com/tinyland-inc/huskycat/internal/runstore"
	"github.com/tinyland-inc/huskycat/internal/supervisor"
)

var (
	validateStaged bool
	validateFix    bool
	validateAll    bool
	validateOnly   string
	validateJSON   bool
	validateDetach bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [paths...]",
	Short: "Run the tool catalog over a file set",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateStaged, "staged", false, "validate git's currently staged files")
	validateCmd.Flags().BoolVar(&validateFix, "fix", false, "let supporting tools mutate files to resolve findings")
	validateCmd.Flags().BoolVar(&validateAll, "all", false, "run every registered tool regardless of the mode's default filter")
	validateCmd.Flags().StringVar(&validateOnly, "only", "", "restrict the run to a single registered tool")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "force JSON output regardless of detected mode")
	validateCmd.Flags().BoolVar(&validateDetach, "detach", false, "child-process marker: never re-fork in non-blocking mode")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()
	eng, cfg, _, err := newEngine(ws)
	if err != nil {
		return err
	}

	mode := detectMode("validate", cfg)
	adapter := adapterFor(mode, validateAll)
	if validateJSON {
		adapter.OutputFormat = modeadapt.FormatJSON
	}

	// The detached child (re-invoked with --detach) runs past its parent's
	// own pre-fork CHECK-PRIOR; it must not repeat the check against the
	// same still-current last_run pointer.
	if !(mode == modedetect.ModeGitHooksNonblocking && validateDetach) {
		if decision, err := checkPriorRun(ws, adapter); err != nil {
			return err
		} else if decision == supervisor.DecisionAbort {
			os.Exit(1)
		}
	}

	if mode == modedetect.ModeGitHooksNonblocking && !validateDetach {
		return runDetached(ws, args)
	}

	run, err := executeValidate(eng, ws, args, adapter)
	if validateDetach {
		// The detached child removes the PID file its parent wrote for it.
		_ = supervisor.DeletePidFile(ws, fmt.Sprintf("detached-%d", os.Getpid()))
	}
	if err != nil {
		return err
	}

	if logger != nil {
		logger.Info("run completed",
			zap.String("run_id", run.RunID),
			zap.String("mode", run.Mode),
			zap.Bool("success", run.Success),
		)
	}

	out, err := result.Serialize(run, result.Format(adapter.OutputFormat))
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !run.Success {
		os.Exit(1)
	}
	return nil
}

// checkPriorRun implements the Process Supervisor's CHECK-PRIOR step
// (spec.md §4.8, scenario S6): before any tool is dispatched, it reads the
// Run Store's last_run pointer and, if that run failed or never finished,
// either prompts the user (interactive modes, with a tty on stdin) or
// reports the prior outcome and proceeds (every other mode).
func checkPriorRun(ws string, adapter modeadapt.Adapter) (supervisor.Decision, error) {
	store, err := runstore.Open(ws)
	if err != nil {
		return supervisor.DecisionAbort, err
	}

	ptr, err := store.LastRun()
	if err != nil {
		return supervisor.DecisionAbort, err
	}

	var prior *supervisor.PriorRun
	if ptr != nil {
		incomplete, err := store.Incomplete(ptr.RunID)
		if err != nil {
			return supervisor.DecisionAbort, err
		}
		if incomplete || !ptr.Success {
			state := "failed"
			if incomplete {
				state = "did not complete"
			}
			prior = &supervisor.PriorRun{
				RunID:      ptr.RunID,
				Failed:     !incomplete,
				Incomplete: incomplete,
				Summary:    fmt.Sprintf("previous run %s %s", ptr.RunID, state),
			}
		}
	}

	interactive := adapter.Interactivity != modeadapt.InteractNone && isTerminal(os.Stdin)
	decision := supervisor.CheckPrior(prior, interactive, promptPriorRun, reportPriorRun)
	return decision, nil
}

// promptPriorRun asks the user at the terminal whether to proceed despite
// the prior run's outcome; only reached when CHECK-PRIOR is interactive.
func promptPriorRun(prior supervisor.PriorRun) supervisor.Decision {
	fmt.Printf("huskycat: %s. Proceed anyway? [y/N] ", prior.Summary)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "y" || answer == "yes" {
		return supervisor.DecisionProceed
	}
	return supervisor.DecisionAbort
}

// reportPriorRun prints the prior run's outcome without blocking, for every
// non-interactive mode CHECK-PRIOR runs under.
func reportPriorRun(prior supervisor.PriorRun) {
	fmt.Printf("huskycat: %s\n", prior.Summary)
}

func executeValidate(eng *engine.Engine, ws string, args []string, adapter modeadapt.Adapter) (result.Run, error) {
	var sink progress.Sink
	var tableSink *progress.TableSink
	if adapter.EmitProgress && isTerminal(os.Stdout) {
		tableSink = progress.NewTableSink()
		sink = tableSink
	} else {
		sink = progress.NoopSink{}
	}

	req := engine.Request{
		Paths:    args,
		Staged:   validateStaged,
		Fix:      validateFix,
		Only:     validateOnly,
		Adapter:  adapter,
		Progress: sink,
	}

	if tableSink == nil {
		return eng.Run(context.Background(), req)
	}

	done := make(chan struct{})
	var run result.Run
	var runErr error
	go func() {
		defer close(done)
		run, runErr = eng.Run(context.Background(), req)
	}()
	_ = progress.RunTUI(tableSink)
	<-done
	return run, runErr
}

// runDetached forks a detached child re-invoking this same command with
// --detach set, writes its PID file, and returns immediately: the
// non-blocking git-hooks contract (spec.md §4.9) requires the parent (the
// git hook itself) back in under 100ms.
func runDetached(ws string, args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	argv := append([]string{exe, "validate", "--detach"}, args...)
	if validateStaged {
		argv = append(argv, "--staged")
	}
	if validateFix {
		argv = append(argv, "--fix")
	}

	pid, err := supervisor.ForkChild(argv, ws, os.Environ())
	if err != nil {
		return err
	}
	runID := fmt.Sprintf("detached-%d", pid)
	if _, err := supervisor.WritePidFile(ws, runID, pid); err != nil {
		return err
	}
	fmt.Printf("huskycat: running in background (pid %d)\n", pid)
	return nil
}
