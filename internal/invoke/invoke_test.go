package invoke

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tinyland-inc/huskycat/internal/executor"
	"github.com/tinyland-inc/huskycat/internal/registry"
	"github.com/tinyland-inc/huskycat/internal/router"
)

func TestBuildArgvSubstitutesFiles(t *testing.T) {
	tool := registry.Tool{Name: "echoer", Invocation: []string{"echo", "{files}"}}
	argv, err := buildArgv(tool, false, []string{"a.go", "b.go"})
	if err != nil {
		t.Fatalf("buildArgv: %v", err)
	}
	want := []string{"echo", "a.go", "b.go"}
	if len(argv) != len(want) {
		t.Fatalf("got %v, want %v", argv, want)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Fatalf("got %v, want %v", argv, want)
		}
	}
}

func TestBuildArgvFixTokenBothBranches(t *testing.T) {
	tool := registry.Tool{Name: "fmt", SupportsFix: true, Invocation: []string{"fmt", "{fix:-w|-l}", "{files}"}}

	argv, err := buildArgv(tool, true, []string{"a.go"})
	if err != nil {
		t.Fatalf("buildArgv fix: %v", err)
	}
	if argv[1] != "-w" {
		t.Fatalf("expected -w in fix mode, got %v", argv)
	}

	argv, err = buildArgv(tool, false, []string{"a.go"})
	if err != nil {
		t.Fatalf("buildArgv check: %v", err)
	}
	if argv[1] != "-l" {
		t.Fatalf("expected -l in check mode, got %v", argv)
	}
}

func TestBuildArgvFixTokenOmittedWhenEmpty(t *testing.T) {
	tool := registry.Tool{Name: "ruff", SupportsFix: true, Invocation: []string{"ruff", "check", "{fix:--fix}", "{files}"}}

	argv, err := buildArgv(tool, false, []string{"a.py"})
	if err != nil {
		t.Fatalf("buildArgv: %v", err)
	}
	want := []string{"ruff", "check", "a.py"}
	if len(argv) != len(want) {
		t.Fatalf("expected --fix omitted, got %v", argv)
	}
}

func TestBuildArgvRejectsEmptyFiles(t *testing.T) {
	tool := registry.Tool{Name: "fmt", Invocation: []string{"fmt", "{files}"}}
	if _, err := buildArgv(tool, false, nil); err == nil {
		t.Fatal("expected error substituting {files} with no files")
	}
}

func TestInvokeSucceeds(t *testing.T) {
	tool := registry.Tool{Name: "true-ish", Invocation: []string{"true"}}
	iv := &Invoker{}
	res := iv.Invoke(context.Background(), executor.Invocation{Tool: tool, Verdict: router.VerdictLocalPath, Target: "<batch>"}, false)
	if res.Status != "success" {
		t.Fatalf("expected success, got %+v", res)
	}
}

func TestInvokeFailureCountsFindings(t *testing.T) {
	tool := registry.Tool{Name: "lister", Invocation: []string{"sh", "-c", "printf 'a.go\\nb.go\\n' && exit 1"}}
	iv := &Invoker{}
	res := iv.Invoke(context.Background(), executor.Invocation{Tool: tool, Verdict: router.VerdictLocalPath, Target: "<batch>"}, false)
	if res.Status != "failed" {
		t.Fatalf("expected failed, got %+v", res)
	}
	if res.ErrorCount != 2 {
		t.Fatalf("expected 2 findings, got %d (stdout=%q)", res.ErrorCount, res.Stdout)
	}
}

func TestInvokeDetectsFixedFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(target, []byte("before"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tool := registry.Tool{
		Name: "rewriter", SupportsFix: true,
		Invocation: []string{"sh", "-c", "echo -n after > " + target},
	}
	iv := &Invoker{Workspace: dir}
	res := iv.Invoke(context.Background(), executor.Invocation{
		Tool: tool, Verdict: router.VerdictLocalPath, Target: target, Files: []string{target},
	}, true)

	if res.Status != "success" {
		t.Fatalf("expected success, got %+v", res)
	}
	if !res.Fixed {
		t.Fatalf("expected Fixed=true after content change, got %+v", res)
	}
}

func TestResolveArgvBundledSubstitutesPath(t *testing.T) {
	tool := registry.Tool{Name: "mytool", Invocation: []string{"mytool", "{files}"}}
	bundled := func(name string) (string, bool) {
		if name == "mytool" {
			return "/cache/mytool", true
		}
		return "", false
	}
	argv, err := resolveArgv(executor.Invocation{Tool: tool, Verdict: router.VerdictBundled, Files: []string{"a.go"}}, false, bundled, nil)
	if err != nil {
		t.Fatalf("resolveArgv: %v", err)
	}
	if argv[0] != "/cache/mytool" {
		t.Fatalf("expected bundled path substituted, got %v", argv)
	}
}

func TestResolveArgvSandboxWraps(t *testing.T) {
	tool := registry.Tool{Name: "gpl-tool", LicenseClass: registry.LicenseCopyleft, Invocation: []string{"gpl-tool", "{files}"}}
	sandbox := func(argv []string) []string {
		return append([]string{"sandbox-run", "--"}, argv...)
	}
	argv, err := resolveArgv(executor.Invocation{Tool: tool, Verdict: router.VerdictSandboxedSidecar, Files: []string{"a.go"}}, false, nil, sandbox)
	if err != nil {
		t.Fatalf("resolveArgv: %v", err)
	}
	if argv[0] != "sandbox-run" || argv[1] != "--" || argv[2] != "gpl-tool" {
		t.Fatalf("expected sandbox-wrapped argv, got %v", argv)
	}
}

func TestResolveArgvUnavailableErrors(t *testing.T) {
	tool := registry.Tool{Name: "missing", Invocation: []string{"missing", "{files}"}}
	if _, err := resolveArgv(executor.Invocation{Tool: tool, Verdict: router.VerdictUnavailable, Files: []string{"a.go"}}, false, nil, nil); err == nil {
		t.Fatal("expected error resolving argv for an unavailable verdict")
	}
}
