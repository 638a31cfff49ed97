// Package main is the entry point for the kmigrator CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/satishbabariya/kmigrator/cmd/kmigrator/commands"
	"github.com/satishbabariya/kmigrator/internal/config"
	"github.com/satishbabariya/kmigrator/internal/debug"
	"github.com/satishbabariya/kmigrator/internal/utils/container"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	debug.Init(cfg.Debug)

	// Create dependency injection container
	c, err := container.NewContainer(cfg, config.AppFs)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}

	return commands.NewRootCommand(c).ExecuteContext(ctx)
}
