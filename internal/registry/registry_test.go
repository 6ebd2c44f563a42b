package registry

import (
	"testing"

	"github.com/tinyland-inc/huskycat/internal/huskyerr"
)

func TestBuildRejectsCycle(t *testing.T) {
	_, err := Build([]Tool{
		{Name: "a", Dependencies: []string{"b"}},
		{Name: "b", Dependencies: []string{"a"}},
	})
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	kind, ok := huskyerr.KindOf(err)
	if !ok || kind != huskyerr.KindConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBuildRejectsUnregisteredDependency(t *testing.T) {
	_, err := Build([]Tool{
		{Name: "checker", Dependencies: []string{"formatter"}},
	})
	if err == nil {
		t.Fatal("expected unregistered dependency error, got nil")
	}
}

func TestBuildRejectsDuplicateName(t *testing.T) {
	_, err := Build([]Tool{
		{Name: "formatter"},
		{Name: "formatter"},
	})
	if err == nil {
		t.Fatal("expected duplicate name error, got nil")
	}
}

func TestLevelsRespectDependencyOrder(t *testing.T) {
	r, err := Build([]Tool{
		{Name: "formatter", EstimatedCost: 1},
		{Name: "checker", Dependencies: []string{"formatter"}, EstimatedCost: 5},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	levels := r.Levels()
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(levels))
	}
	if len(levels[0]) != 1 || levels[0][0].Name != "formatter" {
		t.Fatalf("expected level 0 = [formatter], got %+v", levels[0])
	}
	if len(levels[1]) != 1 || levels[1][0].Name != "checker" {
		t.Fatalf("expected level 1 = [checker], got %+v", levels[1])
	}
}

func TestLevelsTieBreakByCostThenName(t *testing.T) {
	r, err := Build([]Tool{
		{Name: "zulu", EstimatedCost: 5},
		{Name: "alpha", EstimatedCost: 5},
		{Name: "bravo", EstimatedCost: 9},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	level := r.Levels()[0]
	if len(level) != 3 {
		t.Fatalf("expected all 3 tools in one level, got %d", len(level))
	}
	got := []string{level[0].Name, level[1].Name, level[2].Name}
	want := []string{"bravo", "alpha", "zulu"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tie-break order = %v, want %v", got, want)
		}
	}
}

func TestLookupAndToolsMatching(t *testing.T) {
	r, err := Build([]Tool{
		{Name: "gofmt", Matcher: []string{"*.go"}},
		{Name: "ruff", Matcher: []string{"*.py"}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, ok := r.Lookup("gofmt"); !ok {
		t.Fatal("expected gofmt to be registered")
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Fatal("expected missing tool lookup to fail")
	}

	matched := r.ToolsMatching("main.go")
	if len(matched) != 1 || matched[0].Name != "gofmt" {
		t.Fatalf("expected [gofmt], got %+v", matched)
	}

	if len(r.ToolsMatching("README.md")) != 0 {
		t.Fatal("expected no match for README.md")
	}
}

func TestDependedOnFailed(t *testing.T) {
	tool := Tool{Name: "checker", Dependencies: []string{"formatter"}}

	if _, blocked := DependedOnFailed(tool, map[string]string{"formatter": "success"}); blocked {
		t.Fatal("expected not blocked when dependency succeeded")
	}

	blockedBy, blocked := DependedOnFailed(tool, map[string]string{"formatter": "failed"})
	if !blocked || blockedBy != "formatter" {
		t.Fatalf("expected blocked by formatter, got blockedBy=%q blocked=%v", blockedBy, blocked)
	}
}

func TestLoadBuiltinCatalogIsAcyclic(t *testing.T) {
	tools, err := LoadBuiltin()
	if err != nil {
		t.Fatalf("LoadBuiltin: %v", err)
	}
	if len(tools) == 0 {
		t.Fatal("expected a non-empty builtin catalog")
	}

	if _, err := Build(tools); err != nil {
		t.Fatalf("builtin catalog must build a valid registry: %v", err)
	}
}

func TestMergeCatalogsOverridesByName(t *testing.T) {
	base := []Tool{
		{Name: "gofmt", EstimatedCost: 1},
		{Name: "golangci-lint", EstimatedCost: 8},
	}
	override := []Tool{
		{Name: "gofmt", EstimatedCost: 99},
		{Name: "custom-tool", EstimatedCost: 3},
	}

	merged := MergeCatalogs(base, override)
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged tools, got %d", len(merged))
	}

	byName := make(map[string]Tool, len(merged))
	for _, t := range merged {
		byName[t.Name] = t
	}
	if byName["gofmt"].EstimatedCost != 99 {
		t.Fatalf("expected override to replace gofmt cost, got %+v", byName["gofmt"])
	}
	if _, ok := byName["custom-tool"]; !ok {
		t.Fatal("expected custom-tool to be appended")
	}
}
