package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/webflow/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts webflow as an MCP server, so AI agents can launch flows and signal
events through tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP on --http-addr.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")

		// Logs go to Stderr so they never corrupt JSON-RPC on Stdout.
		log.SetOutput(os.Stderr)

		stack, cfg, err := newStack(cmd)
		if err != nil {
			log.Fatalf("Error initializing webflow: %v", err)
		}
		defer stack.Close()

		srv := mcp.NewServer(stack.Engine,
			mcp.WithCatalog(stack.Flows),
			mcp.WithLogger(stack.Logger),
		)

		switch transport {
		case "stdio":
			stack.Logger.Info("Starting webflow MCP server (stdio)")
			if err := srv.ServeStdio(); err != nil {
				stack.Logger.Error("MCP server execution failed", "error", err)
				os.Exit(1)
			}
		case "sse":
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				stack.Logger.Error("MCP server execution failed", "error", err)
				os.Exit(1)
			}
			stack.Logger.Info("MCP server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
}
