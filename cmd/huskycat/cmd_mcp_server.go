package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/huskycat/internal/rpc"
)

var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Serve the Agent RPC Dispatcher over stdio",
	RunE:  runMCPServer,
}

func runMCPServer(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()
	eng, _, reg, err := newEngine(ws)
	if err != nil {
		return err
	}

	dispatcher := rpc.NewDispatcher(reg, eng)
	server := rpc.NewServer(dispatcher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx, os.Stdin, os.Stdout)
}
