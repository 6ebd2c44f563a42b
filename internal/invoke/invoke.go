// Package invoke implements the process-execution backend behind the
// Parallel Executor's executor.InvokeFunc: it turns one executor.Invocation
// into a real subprocess, using the Execution Router's verdict to decide
// how the tool's argv is resolved (on PATH, from the extraction cache, or
// wrapped for a sandbox runtime), and turns the subprocess's exit status
// and captured output into a result.Result.
//
// It generalizes internal/tools/shell/execute.go's process-execution
// pattern from codeNERD — os/exec.CommandContext under a deadline, with
// stdout/stderr captured to in-memory buffers and the combined output
// truncated past a byte ceiling — replacing "run an LLM-requested shell
// command" with "run a cataloged analysis tool against its resolved argv".
package invoke

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/tinyland-inc/huskycat/internal/executor"
	"github.com/tinyland-inc/huskycat/internal/registry"
	"github.com/tinyland-inc/huskycat/internal/result"
	"github.com/tinyland-inc/huskycat/internal/router"
)

// maxCapturedOutput bounds how much of each of stdout and stderr a Result
// carries (each stream is truncated separately),
// matching the truncation ceiling codeNERD's shell tools apply to command
// output before handing it back to the caller.
const maxCapturedOutput = 50_000

// SandboxRunner wraps an already-resolved argv so it executes inside a
// sandbox runtime instead of directly on the host, for the
// sandboxed-sidecar and sandboxed-delegation verdicts. The sandbox runtime
// itself is out of scope (spec.md §1); this is the seam the orchestrator
// calls through.
type SandboxRunner func(argv []string) []string

// Invoker resolves and runs one executor.Invocation per the Execution
// Router's verdict.
type Invoker struct {
	// BundledPath resolves a tool name to its extracted bundled-copy path.
	// Required for the bundled verdict; nil is treated as "never bundled".
	BundledPath func(name string) (string, bool)

	// Sandbox wraps argv for sandboxed-sidecar/sandboxed-delegation
	// verdicts. Nil means no sandbox runtime is available, which should
	// not happen for a verdict the Execution Router produced, but is
	// handled defensively: the invocation is reported as a failed Result.
	Sandbox SandboxRunner

	// Workspace roots relative file targets for hashing fixed-file
	// detection; empty means the current working directory.
	Workspace string
}

// Invoke implements executor.InvokeFunc.
func (iv *Invoker) Invoke(ctx context.Context, inv executor.Invocation, fix bool) result.Result {
	argv, err := resolveArgv(inv, fix, iv.BundledPath, iv.Sandbox)
	if err != nil {
		return result.Result{Status: result.StatusFailed, ErrorCount: 1, Stderr: err.Error()}
	}

	doFix := fix && inv.Tool.SupportsFix
	before := hashFiles(iv.Workspace, inv.Files)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if iv.Workspace != "" {
		cmd.Dir = iv.Workspace
	}
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	res := result.Result{
		Stdout: truncate(stdout.String()),
		Stderr: truncate(stderr.String()),
	}

	switch {
	case runErr == nil:
		res.Status = result.StatusSuccess
	default:
		res.Status = result.StatusFailed
		res.ErrorCount = countFindings(stdout.String(), stderr.String())
		if res.ErrorCount == 0 {
			res.ErrorCount = 1
		}
	}

	if doFix {
		after := hashFiles(iv.Workspace, inv.Files)
		res.Fixed = filesChanged(before, after)
	}

	return res
}

// resolveArgv builds the concrete argv for inv, per its Router verdict:
// bundled substitutes the cache-extracted path for argv[0], local-path and
// in-sandbox verdicts leave the tool name to be resolved off PATH by
// os/exec itself, and the two sandboxed verdicts wrap the resolved argv for
// the sandbox runtime.
func resolveArgv(inv executor.Invocation, fix bool, bundledPath func(string) (string, bool), sandbox SandboxRunner) ([]string, error) {
	argv, err := buildArgv(inv.Tool, fix, inv.Files)
	if err != nil {
		return nil, err
	}

	switch inv.Verdict {
	case router.VerdictBundled:
		if bundledPath == nil {
			return nil, fmt.Errorf("invoke: %s: verdict bundled but no bundled-path resolver configured", inv.Tool.Name)
		}
		path, ok := bundledPath(inv.Tool.Name)
		if !ok {
			return nil, fmt.Errorf("invoke: %s: verdict bundled but no extracted binary found", inv.Tool.Name)
		}
		argv[0] = path
		return argv, nil

	case router.VerdictLocalPath:
		return argv, nil

	case router.VerdictSandboxedSidecar, router.VerdictSandboxedDelegation:
		if sandbox == nil {
			return nil, fmt.Errorf("invoke: %s: verdict %s but no sandbox runtime configured", inv.Tool.Name, inv.Verdict)
		}
		return sandbox(argv), nil

	default:
		return nil, fmt.Errorf("invoke: %s: unexpected verdict %s at invocation time", inv.Tool.Name, inv.Verdict)
	}
}

// buildArgv expands tool.Invocation's template tokens: "{files}" becomes the
// flattened file list, and "{fix:whenFix}" / "{fix:whenFix|whenNotFix}"
// resolves to the tool's fix-mode flag (or its check-mode flag, or nothing)
// depending on whether a fix was both requested and supported.
func buildArgv(tool registry.Tool, fix bool, files []string) ([]string, error) {
	doFix := fix && tool.SupportsFix

	argv := make([]string, 0, len(tool.Invocation)+len(files))
	for _, tok := range tool.Invocation {
		switch {
		case tok == "{files}":
			if len(files) == 0 {
				return nil, fmt.Errorf("invoke: %s: no files to substitute for {files}", tool.Name)
			}
			argv = append(argv, files...)

		case strings.HasPrefix(tok, "{fix:") && strings.HasSuffix(tok, "}"):
			body := tok[len("{fix:") : len(tok)-1]
			whenFix, whenNot, hasAlt := strings.Cut(body, "|")
			var flag string
			if doFix {
				flag = whenFix
			} else if hasAlt {
				flag = whenNot
			}
			if flag != "" {
				argv = append(argv, flag)
			}

		default:
			argv = append(argv, tok)
		}
	}

	if len(argv) == 0 {
		return nil, fmt.Errorf("invoke: %s: empty invocation template", tool.Name)
	}
	return argv, nil
}

// countFindings estimates an error count from a failed tool's combined
// output: one per non-empty line. Tools report findings one-per-line (a
// changed-file listing, a lint diagnostic, a type error); this is a
// deliberately coarse heuristic, since per-tool output parsing is out of
// scope (spec.md §1: "per-tool parser ... implementations beyond their
// invocation contract").
func countFindings(stdout, stderr string) int {
	count := 0
	for _, line := range strings.Split(stdout+stderr, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

func truncate(s string) string {
	if len(s) <= maxCapturedOutput {
		return s
	}
	return s[:maxCapturedOutput] + "\n...[truncated]"
}

// hashFiles returns a content digest per file, used to detect whether a
// supports-fix invocation actually mutated anything.
func hashFiles(workspace string, files []string) map[string]string {
	out := make(map[string]string, len(files))
	for _, f := range files {
		path := f
		if workspace != "" && !strings.HasPrefix(f, "/") {
			path = workspace + "/" + f
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		sum := sha256.Sum256(data)
		out[f] = string(sum[:])
	}
	return out
}

func filesChanged(before, after map[string]string) bool {
	for f, b := range before {
		if after[f] != b {
			return true
		}
	}
	return false
}
