package modedetect

import "testing"

func TestDetectExplicitFlagWins(t *testing.T) {
	in := DetectInput{ExplicitFlag: "ci", CI: "true", StdoutIsTerminal: true}
	if got := Detect(in); got != ModeCI {
		t.Fatalf("got %s, want ci", got)
	}
}

func TestDetectEnvOverrideBeatsHeuristics(t *testing.T) {
	in := DetectInput{EnvOverride: "pipeline", StdoutIsTerminal: true}
	if got := Detect(in); got != ModePipeline {
		t.Fatalf("got %s, want pipeline", got)
	}
}

func TestDetectMCPServerSubcommand(t *testing.T) {
	in := DetectInput{Subcommand: "mcp-server", StdoutIsTerminal: true}
	if got := Detect(in); got != ModeAgentRPC {
		t.Fatalf("got %s, want agent-rpc", got)
	}
}

func TestDetectCIMarkers(t *testing.T) {
	cases := []DetectInput{
		{CI: "true"},
		{GitlabCI: "true"},
		{GithubActions: "true"},
		{JenkinsURL: "http://jenkins"},
	}
	for _, in := range cases {
		if got := Detect(in); got != ModeCI {
			t.Fatalf("got %s, want ci for %+v", got, in)
		}
	}
}

func TestDetectGitHookBlockingByDefault(t *testing.T) {
	in := DetectInput{GitDir: "/repo/.git"}
	if got := Detect(in); got != ModeGitHooksBlocking {
		t.Fatalf("got %s, want git-hooks-blocking", got)
	}
}

func TestDetectGitHookNonblockingWhenConfigured(t *testing.T) {
	in := DetectInput{GitIndexFile: "/repo/.git/index", NonblockingConfig: true}
	if got := Detect(in); got != ModeGitHooksNonblocking {
		t.Fatalf("got %s, want git-hooks-nonblocking", got)
	}
}

func TestDetectPipelineWhenNotATerminal(t *testing.T) {
	in := DetectInput{StdoutIsTerminal: false}
	if got := Detect(in); got != ModePipeline {
		t.Fatalf("got %s, want pipeline", got)
	}
}

func TestDetectCLIFallback(t *testing.T) {
	in := DetectInput{StdoutIsTerminal: true}
	if got := Detect(in); got != ModeCLI {
		t.Fatalf("got %s, want cli", got)
	}
}

func TestDetectPriorityOrder(t *testing.T) {
	// CI markers outrank git-hook markers even when both are present.
	in := DetectInput{CI: "true", GitDir: "/repo/.git"}
	if got := Detect(in); got != ModeCI {
		t.Fatalf("got %s, want ci to win over git hook markers", got)
	}
}
