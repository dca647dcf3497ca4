// Command fires-mcp serves read-only FIRES progress tools over MCP stdio.
//
// Usage:
//
//	fires-mcp    # reads FIRES_* configuration, serves on stdin/stdout
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/okian/fires/internal/adapters/mcptools"
	"github.com/okian/fires/internal/adapters/repository"
	app "github.com/okian/fires/internal/app"
	"github.com/okian/fires/internal/config"
	"github.com/okian/fires/pkg/logger"
)

// Version is reported to MCP clients.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	// Stdout carries the MCP protocol; logs go to stderr.
	if err := logger.InitWithOptions(cfg.LogFormat, os.Stderr); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	_ = logger.SetLevelString(cfg.LogLevel)
	log := logger.Get()

	var store repository.Store
	switch cfg.StoreDriver {
	case config.DriverMemory:
		store = repository.NewMemStore()
	default:
		store, err = repository.Open(ctx, cfg.StoreDriver, cfg.StoreDSN, repository.WithLogger(log.Named("store")))
		if err != nil {
			return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
		}
	}
	defer store.Close()

	svc := app.New(
		app.WithStore(store),
		app.WithLogger(log.Named("service")),
		app.WithFeedLimit(cfg.FeedLimit),
		app.WithConnectionBonus(cfg.ConnectionBonus, cfg.ConnectionBonusCap),
	)

	log.Info(ctx, "serving MCP over stdio", logger.String("store", cfg.StoreDriver))
	return server.ServeStdio(mcptools.NewServer(svc, Version))
}
