// Package main provides the standalone MCP entry point for the triage
// server. It requires no external databases: verdicts audit to a local
// SQLite file and the cache lives in memory.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/atp-triage-server/internal/config"
	"github.com/atp-triage-server/internal/mcp"
)

func main() {
	// Load lightweight configuration
	cfg := config.LoadLiteConfig()

	log.Printf("Starting ATP Triage MCP Server (data directory: %s)", cfg.DataDir)

	server, err := mcp.NewLiteServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Run(ctx); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}

	log.Println("ATP Triage MCP Server stopped")
}
