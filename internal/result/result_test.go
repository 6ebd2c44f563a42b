package result

import (
	"strings"
	"testing"
	"time"
)

func TestAggregatorAddAndSummarize(t *testing.T) {
	a := NewAggregator()
	a.Add(Result{ToolName: "gofmt", Target: "a.go", Status: StatusSuccess})
	a.Add(Result{ToolName: "golangci-lint", Target: "a.go", Status: StatusFailed, ErrorCount: 2})
	a.Add(Result{ToolName: "mypy", Target: "<batch>", Status: StatusSkipped, SkipReason: "blocked by black"})

	s := a.Summarize(5 * time.Second)
	if s.Total != 3 || s.Success != 1 || s.Failed != 1 || s.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.ErrorCountSum != 2 {
		t.Fatalf("expected error count sum 2, got %d", s.ErrorCountSum)
	}
}

func TestAggregatorAddDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate (tool, target)")
		}
	}()
	a := NewAggregator()
	a.Add(Result{ToolName: "gofmt", Target: "a.go", Status: StatusSuccess})
	a.Add(Result{ToolName: "gofmt", Target: "a.go", Status: StatusSuccess})
}

func TestFinalizeSuccessInvariant(t *testing.T) {
	a := NewAggregator()
	a.Add(Result{ToolName: "gofmt", Target: "a.go", Status: StatusSuccess})
	start := time.Now()
	run := a.Finalize("run-1", "cli", []string{"a.go"}, []string{"gofmt"}, start, start.Add(time.Second))
	if !run.Success {
		t.Fatal("expected success=true when no result failed or timed out")
	}

	b := NewAggregator()
	b.Add(Result{ToolName: "gofmt", Target: "a.go", Status: StatusFailed})
	run2 := b.Finalize("run-2", "cli", []string{"a.go"}, []string{"gofmt"}, start, start.Add(time.Second))
	if run2.Success {
		t.Fatal("expected success=false when a result failed")
	}
}

func TestSerializeMinimalEmptyOnTotalSuccess(t *testing.T) {
	a := NewAggregator()
	a.Add(Result{ToolName: "gofmt", Target: "a.go", Status: StatusSuccess})
	run := a.Finalize("run-1", "cli", nil, []string{"gofmt"}, time.Now(), time.Now())

	out, err := Serialize(run, FormatMinimal)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty minimal output on total success, got %q", out)
	}
}

func TestSerializeMinimalListsFailures(t *testing.T) {
	a := NewAggregator()
	a.Add(Result{ToolName: "golangci-lint", Target: "a.go", Status: StatusFailed})
	run := a.Finalize("run-1", "cli", nil, []string{"golangci-lint"}, time.Now(), time.Now())

	out, err := Serialize(run, FormatMinimal)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected non-empty minimal output on failure")
	}
}

func TestSerializeHumanEmptyRun(t *testing.T) {
	run := NewAggregator().Finalize("run-1", "cli", nil, nil, time.Now(), time.Now())
	out, err := Serialize(run, FormatHuman)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if string(out) != "Nothing to validate.\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSerializeJUnitStructure(t *testing.T) {
	a := NewAggregator()
	a.Add(Result{ToolName: "gofmt", Target: "a.go", Status: StatusSuccess})
	a.Add(Result{ToolName: "gofmt", Target: "b.go", Status: StatusFailed, ErrorCount: 1})
	run := a.Finalize("run-1", "ci", nil, []string{"gofmt"}, time.Now(), time.Now())

	out, err := Serialize(run, FormatJUnit)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !contains(out, "<testsuite") || !contains(out, "<failure") {
		t.Fatalf("expected testsuite/failure elements, got %s", out)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	a := NewAggregator()
	a.Add(Result{ToolName: "gofmt", Target: "a.go", Status: StatusSuccess, ErrorCount: 0, WarningCount: 1})
	a.Add(Result{ToolName: "mypy", Target: "<batch>", Status: StatusSkipped, SkipReason: "blocked"})
	start := time.Now().Truncate(time.Second)
	run := a.Finalize("run-1", "cli", []string{"a.go"}, []string{"gofmt", "mypy"}, start, start.Add(2*time.Second))

	out, err := Serialize(run, FormatJSON)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	roundTripped, err := Deserialize(out)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if roundTripped.RunID != run.RunID || roundTripped.Mode != run.Mode {
		t.Fatalf("round-trip mismatch: %+v vs %+v", roundTripped, run)
	}
	if len(roundTripped.Results) != len(run.Results) {
		t.Fatalf("result count mismatch: %d vs %d", len(roundTripped.Results), len(run.Results))
	}
	if roundTripped.Summary != run.Summary {
		t.Fatalf("summary mismatch: %+v vs %+v", roundTripped.Summary, run.Summary)
	}
}

func TestSerializeJSONRPCWrapsContent(t *testing.T) {
	run := NewAggregator().Finalize("run-1", "agent-rpc", nil, nil, time.Now(), time.Now())
	out, err := Serialize(run, FormatJSONRPC)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !contains(out, `"jsonrpc"`) || !contains(out, `"content"`) {
		t.Fatalf("expected jsonrpc envelope, got %s", out)
	}
}

func contains(haystack []byte, needle string) bool {
	return strings.Contains(string(haystack), needle)
}
