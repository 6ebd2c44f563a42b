package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/huskycat/internal/engine"
	"github.com/tinyland-inc/huskycat/internal/modeadapt"
	"github.com/tinyland-inc/huskycat/internal/progress"
	"github.com/tinyland-inc/huskycat/internal/result"
)

var ciValidateCmd = &cobra.Command{
	Use:   "ci-validate <file>",
	Short: "Validate a single file and emit JUnit XML, fixed to the CI policy",
	Args:  cobra.ExactArgs(1),
	RunE:  runCIValidate,
}

func runCIValidate(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()
	eng, _, _, err := newEngine(ws)
	if err != nil {
		return err
	}

	adapter := modeadapt.ForMode("ci")
	run, err := eng.Run(context.Background(), engine.Request{
		Paths:    args,
		Adapter:  adapter,
		Progress: progress.NoopSink{},
	})
	if err != nil {
		return err
	}

	out, err := result.Serialize(run, result.Format(adapter.OutputFormat))
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !run.Success {
		os.Exit(1)
	}
	return nil
}
