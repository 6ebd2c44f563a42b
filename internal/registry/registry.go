// Package registry implements the Tool Registry: a read-only, post-build
// catalog of known external analysis tools plus their dependency DAG.
//
// It generalizes codeNERD's ToolRegistry (internal/core/tool_registry.go),
// which mapped tool name -> *Tool under a single RWMutex and injected
// registration facts into a Datalog kernel. huskycat has no kernel to
// inform; instead the registry precomputes a topological level order once,
// at construction, and is immutable thereafter.
package registry

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/tinyland-inc/huskycat/internal/huskyerr"
)

// LicenseClass governs which Execution Router verdicts a tool is eligible
// for (spec.md §4.2).
type LicenseClass string

const (
	LicensePermissive  LicenseClass = "permissive"
	LicenseCopyleft    LicenseClass = "copyleft"
	LicenseConditional LicenseClass = "conditional"
)

// Tool is the catalog entry for one external analysis tool.
type Tool struct {
	// Name is unique, lowercase, hyphen-separated.
	Name string `yaml:"name"`

	// Matcher is an ordered sequence of file-path glob patterns; a tool
	// applies to a file if any pattern matches.
	Matcher []string `yaml:"matcher"`

	// LicenseClass constrains routing per spec.md §4.2.
	LicenseClass LicenseClass `yaml:"license_class"`

	// Invocation is the argv template. "{files}" is replaced with the
	// matched file list, and "{fix:whenFix|whenNotFix}" (or "{fix:whenFix}")
	// with whenFix when SupportsFix and a fix was requested, else with
	// whenNotFix (or nothing).
	Invocation []string `yaml:"invocation"`

	// SupportsFix indicates the invocation can mutate files to resolve
	// findings.
	SupportsFix bool `yaml:"supports_fix"`

	// Dependencies lists tool names that must reach a terminal status
	// before this tool starts.
	Dependencies []string `yaml:"dependencies"`

	// EstimatedCost is a relative scheduling-hint integer; higher runs
	// sooner among eligible tools.
	EstimatedCost int `yaml:"estimated_cost"`

	// TimeoutSeconds overrides the configured default per-tool deadline
	// when positive.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Registry is the read-only catalog returned by Build. It is safe for
// concurrent read access from any number of goroutines because nothing
// mutates it after construction.
type Registry struct {
	tools  map[string]Tool
	levels [][]Tool
}

// Build validates the dependency graph over tools and constructs a Registry.
// A cycle in the dependency graph is a fatal configuration error, per
// spec.md §4.1.
func Build(tools []Tool) (*Registry, error) {
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		if t.Name == "" {
			return nil, huskyerr.New(huskyerr.KindConfiguration, "tool with empty name")
		}
		if _, dup := byName[t.Name]; dup {
			return nil, huskyerr.New(huskyerr.KindConfiguration, "duplicate tool %q", t.Name)
		}
		byName[t.Name] = t
	}

	for _, t := range tools {
		for _, dep := range t.Dependencies {
			if _, ok := byName[dep]; !ok {
				return nil, huskyerr.New(huskyerr.KindConfiguration,
					"tool %q depends on unregistered tool %q", t.Name, dep)
			}
		}
	}

	levels, err := levelize(byName)
	if err != nil {
		return nil, err
	}

	return &Registry{tools: byName, levels: levels}, nil
}

// levelize runs Kahn's algorithm over the dependency graph, producing
// ordered levels where every tool's dependencies lie in a strictly earlier
// level. Within a level, tools are ordered by estimated-cost descending,
// then alphabetically, matching the Parallel Executor's tie-break rule.
func levelize(byName map[string]Tool) ([][]Tool, error) {
	remaining := make(map[string][]string, len(byName))
	for name, t := range byName {
		remaining[name] = append([]string(nil), t.Dependencies...)
	}

	var levels [][]Tool
	placed := make(map[string]bool, len(byName))

	for len(placed) < len(byName) {
		var ready []string
		for name, deps := range remaining {
			if placed[name] {
				continue
			}
			allPlaced := true
			for _, d := range deps {
				if !placed[d] {
					allPlaced = false
					break
				}
			}
			if allPlaced {
				ready = append(ready, name)
			}
		}

		if len(ready) == 0 {
			return nil, huskyerr.New(huskyerr.KindConfiguration,
				"cycle detected in tool dependency graph among: %s", strings.Join(unplaced(byName, placed), ", "))
		}

		sort.Slice(ready, func(i, j int) bool {
			ti, tj := byName[ready[i]], byName[ready[j]]
			if ti.EstimatedCost != tj.EstimatedCost {
				return ti.EstimatedCost > tj.EstimatedCost
			}
			return ti.Name < tj.Name
		})

		level := make([]Tool, 0, len(ready))
		for _, name := range ready {
			level = append(level, byName[name])
			placed[name] = true
		}
		levels = append(levels, level)
	}

	return levels, nil
}

func unplaced(byName map[string]Tool, placed map[string]bool) []string {
	var names []string
	for name := range byName {
		if !placed[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named tool, if registered.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// ToolsMatching returns every registered tool whose Matcher includes a
// pattern matching path, in alphabetical order.
func (r *Registry) ToolsMatching(path string) []Tool {
	var matched []Tool
	base := filepath.Base(path)
	for _, t := range r.tools {
		for _, pattern := range t.Matcher {
			if ok, _ := filepath.Match(pattern, base); ok {
				matched = append(matched, t)
				break
			}
			if ok, _ := filepath.Match(pattern, path); ok {
				matched = append(matched, t)
				break
			}
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return matched
}

// Levels returns the DAG level partition computed at Build time: each level
// is a set of tools all of whose dependencies lie in strictly earlier
// levels.
func (r *Registry) Levels() [][]Tool {
	return r.levels
}

// All returns every registered tool, in alphabetical order.
func (r *Registry) All() []Tool {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// DependedOnFailed reports whether any dependency of tool ended in a
// failed-or-timed-out status, and returns the first such dependency name for
// the skip-reason message (spec.md §4.1 edge policy).
func DependedOnFailed(tool Tool, terminalStatus map[string]string) (blockedBy string, blocked bool) {
	for _, dep := range tool.Dependencies {
		switch terminalStatus[dep] {
		case "failed", "timeout":
			return dep, true
		}
	}
	return "", false
}
