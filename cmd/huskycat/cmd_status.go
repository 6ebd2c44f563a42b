package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tinyland-inc/huskycat/internal/runstore"
	"github.com/tinyland-inc/huskycat/internal/supervisor"
)

var (
	toolCountGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huskycat_registered_tools",
		Help: "Number of tools in the active registry.",
	})
	lastRunSuccessGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huskycat_last_run_success",
		Help: "1 if the most recently persisted run succeeded, else 0.",
	})
)

var statusMetrics bool
var statusMetricsAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show detected mode, registered tools, and run-store state",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusMetrics, "metrics", false, "serve Prometheus metrics instead of printing a snapshot")
	statusCmd.Flags().StringVar(&statusMetricsAddr, "metrics-addr", ":9090", "listen address for --metrics")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()

	if statusMetrics {
		return serveMetrics(ws)
	}

	_, cfg, reg, err := newEngine(ws)
	if err != nil {
		return err
	}

	mode := detectMode("status", cfg)
	fmt.Printf("workspace:    %s\n", ws)
	fmt.Printf("mode:         %s\n", mode)
	fmt.Printf("tool count:   %d\n", reg.Len())
	for _, level := range reg.Levels() {
		for _, tool := range level {
			fmt.Printf("  - %-20s license=%-10s cost=%d\n", tool.Name, tool.LicenseClass, tool.EstimatedCost)
		}
	}

	store, err := runstore.Open(ws)
	if err == nil {
		if last, err := store.LastRun(); err == nil && last != nil {
			fmt.Printf("last run:     %s (success=%v)\n", last.RunID, last.Success)
		}
	}

	pids, err := supervisor.ListPidFiles(ws)
	if err == nil {
		for _, p := range pids {
			alive := supervisor.Alive(p)
			fmt.Printf("background:   run %s pid %d alive=%v\n", p.RunID, p.PID, alive)
		}
	}

	return nil
}

// serveMetrics exposes tool-registry and run-store gauges on /metrics,
// grounded on kadirpekel-hector's prometheus/client_golang usage: huskycat
// has no LLM token/latency metrics to report, so this surface reports its
// own domain's equivalents (tool count, last-run outcome).
func serveMetrics(ws string) error {
	_, _, reg, err := newEngine(ws)
	if err != nil {
		return err
	}
	toolCountGauge.Set(float64(reg.Len()))

	if store, err := runstore.Open(ws); err == nil {
		if last, err := store.LastRun(); err == nil && last != nil {
			if last.Success {
				lastRunSuccessGauge.Set(1)
			} else {
				lastRunSuccessGauge.Set(0)
			}
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	fmt.Printf("huskycat: serving metrics on %s/metrics\n", statusMetricsAddr)
	return http.ListenAndServe(statusMetricsAddr, mux)
}
