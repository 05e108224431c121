// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cli implements the memctl administration commands.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/cognitivecomputations/agi-mcp-server/internal/config"
	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/logging"
	"github.com/cognitivecomputations/agi-mcp-server/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// env is what every subcommand works against
type env struct {
	cfg        *config.Config
	logger     *zap.Logger
	components *server.Components
}

func (e *env) close() {
	if err := database.Close(e.components.DB); err != nil {
		e.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// NewRootCmd builds the memctl command tree
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "memctl",
		Short:         "Administer the AGI memory store",
		Long:          "Maintenance commands for the memory database used by the MCP server. Shares the server configuration.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ~/.agi-memory/configs/config.json)")

	open := func() (*env, error) {
		cfg, err := config.Resolve(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		logger, err := logging.New(cfg.Logging)
		if err != nil {
			return nil, err
		}
		db, err := server.OpenDatabase(cfg)
		if err != nil {
			return nil, err
		}
		return &env{cfg: cfg, logger: logger, components: server.NewComponents(cfg, db, logger)}, nil
	}

	root.AddCommand(
		newArchiveCmd(open),
		newPruneCmd(open),
		newCleanupCmd(open),
		newHistoryCmd(open),
		newHealthCmd(open),
		newRecalcCmd(open),
	)
	return root
}

type opener func() (*env, error)

func printJSON(cmd *cobra.Command, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
