// Package modedetect resolves the single operating mode huskycat runs
// under, from an explicit flag down through environment and terminal
// inspection.
//
// It generalizes codeNERD's environment-driven bootstrap in cmd/nerd/main.go
// (detecting TTY-ness and CI variables to decide default command behavior),
// narrowed to the fixed six-mode enumeration the orchestrator requires.
package modedetect

// Mode is one of the six fixed operating contexts.
type Mode string

const (
	ModeGitHooksBlocking    Mode = "git-hooks-blocking"
	ModeGitHooksNonblocking Mode = "git-hooks-nonblocking"
	ModeCI                  Mode = "ci"
	ModeCLI                 Mode = "cli"
	ModePipeline            Mode = "pipeline"
	ModeAgentRPC            Mode = "agent-rpc"
)

// DetectInput carries every signal the priority chain consults, as plain
// values so Detect stays pure and testable without touching the real
// environment or os.Stdout.
type DetectInput struct {
	// ExplicitFlag is the --mode value, empty if not passed.
	ExplicitFlag string

	// EnvOverride is HUSKYCAT_MODE, empty if unset.
	EnvOverride string

	// Subcommand is the invoked cobra subcommand name.
	Subcommand string

	// CI env markers.
	CI            string
	GitlabCI      string
	GithubActions string
	JenkinsURL    string

	// Git hook env markers.
	GitAuthorName string
	GitIndexFile  string
	GitDir        string

	// NonblockingConfig mirrors the repo's huskycat.nonblocking config flag.
	NonblockingConfig bool

	// StdoutIsTerminal is false when standard output is redirected/piped.
	StdoutIsTerminal bool
}

// Detect resolves exactly one Mode, in fixed priority order (spec.md §4.4).
func Detect(in DetectInput) Mode {
	if in.ExplicitFlag != "" {
		return Mode(in.ExplicitFlag)
	}
	if in.EnvOverride != "" {
		return Mode(in.EnvOverride)
	}
	if in.Subcommand == "mcp-server" {
		return ModeAgentRPC
	}
	if in.CI != "" || in.GitlabCI != "" || in.GithubActions != "" || in.JenkinsURL != "" {
		return ModeCI
	}
	if in.GitAuthorName != "" || in.GitIndexFile != "" || in.GitDir != "" {
		if in.NonblockingConfig {
			return ModeGitHooksNonblocking
		}
		return ModeGitHooksBlocking
	}
	if !in.StdoutIsTerminal {
		return ModePipeline
	}
	return ModeCLI
}
