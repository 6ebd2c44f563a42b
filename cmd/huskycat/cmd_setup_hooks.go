package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/huskycat/internal/huskyerr"
)

var setupHooksForce bool

var setupHooksCmd = &cobra.Command{
	Use:   "setup-hooks",
	Short: "Install pre-commit and pre-push git hook shims",
	RunE:  runSetupHooks,
}

func init() {
	setupHooksCmd.Flags().BoolVarP(&setupHooksForce, "force", "f", false, "overwrite existing hook shims")
}

const preCommitShimTemplate = `#!/bin/sh
# Installed by huskycat setup-hooks. Re-run "huskycat setup-hooks --force"
# to update after an upgrade.
exec huskycat validate --staged
`

const prePushShimTemplate = `#!/bin/sh
# Installed by huskycat setup-hooks. Re-run "huskycat setup-hooks --force"
# to update after an upgrade.
exec huskycat validate --all
`

// hookShims maps each installed shim's filename to its template. Per
// spec.md §6, pre-commit validates only staged files while pre-push
// validates the whole tree.
var hookShims = map[string]string{
	"pre-commit": preCommitShimTemplate,
	"pre-push":   prePushShimTemplate,
}

func runSetupHooks(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()
	hooksDir := filepath.Join(ws, ".git", "hooks")
	if info, err := os.Stat(hooksDir); err != nil || !info.IsDir() {
		return huskyerr.New(huskyerr.KindConfiguration, "%s is not a git repository (no .git/hooks)", ws)
	}

	for _, name := range []string{"pre-commit", "pre-push"} {
		path := filepath.Join(hooksDir, name)
		if _, err := os.Stat(path); err == nil && !setupHooksForce {
			fmt.Printf("huskycat: %s already exists, skipping (use --force to overwrite)\n", path)
			continue
		}
		if err := os.WriteFile(path, []byte(hookShims[name]), 0o755); err != nil {
			return huskyerr.Wrap(huskyerr.KindIO, err, "write %s", path)
		}
		fmt.Printf("huskycat: installed %s\n", path)
	}
	return nil
}
