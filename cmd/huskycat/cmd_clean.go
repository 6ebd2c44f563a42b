package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/huskycat/internal/runstore"
	"github.com/tinyland-inc/huskycat/internal/supervisor"
)

var cleanAll bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Garbage-collect the run store and stale background PID files",
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "remove every run record regardless of age")
}

func runClean(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()

	_, cfg, _, err := newEngine(ws)
	if err != nil {
		return err
	}

	store, err := runstore.Open(ws)
	if err != nil {
		return err
	}

	maxAge := time.Duration(cfg.CoreLimits.RunRetentionDays) * 24 * time.Hour
	if cleanAll {
		maxAge = 0
	}
	if err := store.GC(maxAge); err != nil {
		return err
	}

	stale, err := supervisor.ReapStale(ws)
	if err != nil {
		return err
	}
	for _, runID := range stale {
		fmt.Printf("huskycat: reaped stale PID file for run %s\n", runID)
	}

	fmt.Println("huskycat: clean complete")
	return nil
}
