// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cognitivecomputations/agi-mcp-server/internal/config"
	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/logging"
	"github.com/cognitivecomputations/agi-mcp-server/internal/server"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags (e.g. -X main.Version=1.2.0).
var Version string

func main() {
	// MCP servers must only write JSON-RPC to stdout
	log.SetOutput(os.Stderr)

	configPath := flag.String("config", "", "Path to config file (default: ~/.agi-memory/configs/config.json)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "AGI Memory MCP Server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Serves the memory tools over stdio.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  AGI_MEMORY_DB_TYPE     Database type (sqlite or postgres)\n")
		fmt.Fprintf(os.Stderr, "  AGI_MEMORY_DB_PATH     SQLite database path\n")
		fmt.Fprintf(os.Stderr, "  AGI_MEMORY_DB_DSN      PostgreSQL connection string\n")
		fmt.Fprintf(os.Stderr, "  AGI_MEMORY_LOG_LEVEL   Log level (debug, info, warn, error)\n")
	}
	flag.Parse()

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if Version != "" {
		cfg.Server.Version = Version
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := server.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}()
	logger.Info("connected to database", zap.String("type", cfg.Database.Type))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewMCPServer(cfg, db, logger)
	srv.Start(ctx)
	defer srv.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- mcpserver.ServeStdio(srv.GetMCPServer())
	}()
	logger.Info("MCP server ready (stdio mode)",
		zap.String("name", cfg.Server.Name),
		zap.String("version", cfg.Server.Version))

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	}
}
