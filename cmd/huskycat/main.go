// Package main implements the huskycat CLI: a multi-language source
// validation orchestrator that dispatches registered analysis tools over a
// target file set, adapting its output and concurrency policy to whichever
// of six contexts (interactive shell, CI, git hook, pipeline, agent RPC) it
// detects it is running under.
//
// # File Index
//
//   - main.go             - Entry point, rootCmd, global flags, init()
//   - cmd_validate.go     - validateCmd, the core engine invocation
//   - cmd_ci_validate.go  - ciValidateCmd, a single-file CI wrapper
//   - cmd_mcp_server.go   - mcpServerCmd, the Agent RPC stdio server
//   - cmd_setup_hooks.go  - setupHooksCmd, pre-commit/pre-push shim install
//   - cmd_install.go      - installCmd, self-install into the user's bin dir
//   - cmd_status.go       - statusCmd, detected mode/tool/cache inspection
//   - cmd_clean.go        - cleanCmd, run-store and PID-file garbage collection
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tinyland-inc/huskycat/internal/logging"
)

var (
	verbose   bool
	workspace string
	modeFlag  string
	logger    *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "huskycat",
	Short: "huskycat - multi-language source validation orchestrator",
	Long: `huskycat dispatches a catalog of formatters, linters, and type
checkers over a file set, routing each tool to a bundled copy, the host
PATH, or a sandbox runtime, and adapts its output format and concurrency
policy to whichever context it detects it is running under.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}

		ws := resolveWorkspace()
		level := "info"
		if verbose {
			level = "debug"
		}
		if err := logging.Initialize(ws, verbose, level, false); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	SilenceUsage: true,
}

// resolveWorkspace returns the --workspace flag resolved to an absolute
// path, or the current directory when unset.
func resolveWorkspace() string {
	if workspace == "" {
		ws, _ := os.Getwd()
		return ws
	}
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return workspace
	}
	return abs
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "force an operating mode instead of detecting one")

	rootCmd.AddCommand(
		validateCmd,
		ciValidateCmd,
		mcpServerCmd,
		setupHooksCmd,
		installCmd,
		statusCmd,
		cleanCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
