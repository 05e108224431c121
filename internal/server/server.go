// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"context"

	"github.com/cognitivecomputations/agi-mcp-server/internal/config"
	"github.com/cognitivecomputations/agi-mcp-server/internal/tools"
	"github.com/cognitivecomputations/agi-mcp-server/pkg/scheduler"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MCPServer wraps the mcp-go server with the memory components
type MCPServer struct {
	mcpServer  *server.MCPServer
	config     *config.Config
	components *Components
	scheduler  *scheduler.Scheduler
	logger     *zap.Logger
}

// NewMCPServer creates a new MCP server instance with every memory tool
// registered.
func NewMCPServer(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *MCPServer {
	mcpServer := server.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	components := NewComponents(cfg, db, logger)
	srv := &MCPServer{
		mcpServer:  mcpServer,
		config:     cfg,
		components: components,
		scheduler:  components.Scheduler(cfg, logger),
		logger:     logger,
	}

	toolCtx := components.ToolContext(cfg, logger)
	all := tools.All(toolCtx)
	mcpServer.AddTools(all...)

	logger.Info("memory tools registered",
		zap.Int("tools", len(all)),
		zap.Bool("relationships", components.Caps.Relationships()),
		zap.Bool("history", components.Caps.History()),
		zap.Bool("cluster_analytics", components.Caps.ClusterAnalytics()))
	return srv
}

// Start launches the cluster assigner and the background scheduler
func (s *MCPServer) Start(ctx context.Context) {
	s.components.Assigner.Start(ctx)
	s.scheduler.Start(ctx)
}

// Stop halts the background jobs. Queued cluster assignments are
// drained first.
func (s *MCPServer) Stop() {
	s.scheduler.Stop()
	s.components.Assigner.Stop()
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// Components returns the wired memory subsystems
func (s *MCPServer) Components() *Components {
	return s.components
}
