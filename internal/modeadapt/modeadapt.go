// Package modeadapt maps a resolved modedetect.Mode to its fixed output,
// interactivity, tool-filter, fail-fast, and progress policy.
//
// Grounded on the same fixed-table idiom codeNERD uses for shard affinity
// tables in internal/core/tool_registry.go, reapplied here as an immutable
// lookup rather than a mutable registry.
package modeadapt

import "github.com/tinyland-inc/huskycat/internal/modedetect"

// OutputFormat is the serialization format an adapter selects.
type OutputFormat string

const (
	FormatHuman   OutputFormat = "human"
	FormatMinimal OutputFormat = "minimal"
	FormatJUnit   OutputFormat = "junit-xml"
	FormatJSON    OutputFormat = "json"
	FormatJSONRPC OutputFormat = "jsonrpc"
)

// Interactivity is how much the adapter may prompt the user.
type Interactivity string

const (
	InteractNone        Interactivity = "none"
	InteractConfirmOnly Interactivity = "confirm-only"
	InteractFull        Interactivity = "full"
)

// ToolFilter selects which tools from the registry's levels are eligible.
type ToolFilter string

const (
	FilterFast       ToolFilter = "fast"
	FilterConfigured ToolFilter = "configured"
	FilterAll        ToolFilter = "all"
)

// Adapter is the per-mode policy value object.
type Adapter struct {
	Mode          modedetect.Mode
	OutputFormat  OutputFormat
	Interactivity Interactivity
	ToolFilter    ToolFilter
	FailFast      bool
	EmitProgress  bool

	// LogAlongsideOutput is set for git-hooks-nonblocking, whose format is
	// "minimal+log": the minimal format is written to the output channel
	// while the full log streams to the run's log file.
	LogAlongsideOutput bool
}

var fixedTable = map[modedetect.Mode]Adapter{
	modedetect.ModeGitHooksBlocking: {
		OutputFormat: FormatMinimal, Interactivity: InteractNone,
		ToolFilter: FilterFast, FailFast: true, EmitProgress: false,
	},
	modedetect.ModeGitHooksNonblocking: {
		OutputFormat: FormatMinimal, Interactivity: InteractConfirmOnly,
		ToolFilter: FilterAll, FailFast: false, EmitProgress: true,
		LogAlongsideOutput: true,
	},
	modedetect.ModeCI: {
		OutputFormat: FormatJUnit, Interactivity: InteractNone,
		ToolFilter: FilterAll, FailFast: false, EmitProgress: false,
	},
	modedetect.ModeCLI: {
		OutputFormat: FormatHuman, Interactivity: InteractFull,
		ToolFilter: FilterConfigured, FailFast: false, EmitProgress: true,
	},
	modedetect.ModePipeline: {
		OutputFormat: FormatJSON, Interactivity: InteractNone,
		ToolFilter: FilterAll, FailFast: false, EmitProgress: false,
	},
	modedetect.ModeAgentRPC: {
		OutputFormat: FormatJSONRPC, Interactivity: InteractNone,
		ToolFilter: FilterAll, FailFast: false, EmitProgress: false,
	},
}

// ForMode returns the fixed Adapter for mode. Modes outside the six-entry
// table (which Detect never produces) fall back to the cli adapter.
func ForMode(mode modedetect.Mode) Adapter {
	a, ok := fixedTable[mode]
	if !ok {
		a = fixedTable[modedetect.ModeCLI]
	}
	a.Mode = mode
	return a
}
