package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcp-compliance-runner/internal/cli"
)

func main() {
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

	if err := cli.NewMockCommand().ExecuteContext(ctx); err != nil {
		log.Printf("Mock server failed: %v", err)
		cancel()
		os.Exit(cli.ExitCode(err))
	}
}
