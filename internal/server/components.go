// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"fmt"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/cluster"
	"github.com/cognitivecomputations/agi-mcp-server/internal/config"
	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/graph"
	"github.com/cognitivecomputations/agi-mcp-server/internal/history"
	"github.com/cognitivecomputations/agi-mcp-server/internal/lifecycle"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memory"
	"github.com/cognitivecomputations/agi-mcp-server/internal/search"
	"github.com/cognitivecomputations/agi-mcp-server/internal/tools"
	"github.com/cognitivecomputations/agi-mcp-server/internal/working"
	"github.com/cognitivecomputations/agi-mcp-server/pkg/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenDatabase connects to the configured database and migrates the
// core schema plus the enabled optional subsystems.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Connect(&database.Config{
		Type:         cfg.Database.Type,
		SQLitePath:   cfg.Database.SQLitePath,
		PostgresDSN:  cfg.Database.PostgresDSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		LogLevel:     database.ParseLogLevel(cfg.Database.LogLevel),
	})
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(db, cfg.DatabaseFeatures()); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// Components holds the memory subsystems bound to one database
type Components struct {
	DB        *gorm.DB
	Caps      database.Capabilities
	Memories  *memory.Store
	Search    *search.Engine
	Graph     *graph.Manager
	Clusters  *cluster.Engine
	Assigner  *cluster.Assigner
	Working   *working.Store
	Lifecycle *lifecycle.Manager
	History   *history.Log
}

// NewComponents wires every subsystem to db. Optional subsystems are
// enabled by the tables actually present, not by the configuration.
func NewComponents(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *Components {
	caps := database.DetectCapabilities(db)
	dims := cfg.Memory.EmbeddingDimensions

	clusters := cluster.NewEngine(db, logger.Named("cluster"), caps, cluster.Config{
		Dimensions:         dims,
		AffinityThreshold:  cfg.Clusters.AffinityThreshold,
		KeywordThreshold:   cfg.Clusters.KeywordThreshold,
		CoActivationWindow: cfg.CoActivationWindow(),
	})
	assigner := cluster.NewAssigner(clusters, logger.Named("assigner"),
		cfg.Clusters.AssignWorkers, cfg.Clusters.AssignQueueSize)

	store := memory.NewStore(db, logger.Named("memory"), memory.Config{
		Dimensions:       dims,
		DefaultDecayRate: cfg.Memory.DefaultDecayRate,
	}).WithIngestor(assigner)
	hist := history.NewLog(db, logger.Named("history"), caps)

	return &Components{
		DB:        db,
		Caps:      caps,
		Memories:  store,
		Search:    search.NewEngine(db, logger.Named("search"), dims),
		Graph:     graph.NewManager(db, logger.Named("graph"), caps),
		Clusters:  clusters,
		Assigner:  assigner,
		Working:   working.NewStore(db, logger.Named("working"), dims, cfg.WorkingMemoryTTL()),
		Lifecycle: lifecycle.NewManager(db, logger.Named("lifecycle"), caps, store, hist),
		History:   hist,
	}
}

// ToolContext exposes the components to the MCP tools
func (c *Components) ToolContext(cfg *config.Config, logger *zap.Logger) *tools.ToolContext {
	return &tools.ToolContext{
		Memories:        c.Memories,
		Search:          c.Search,
		Graph:           c.Graph,
		Clusters:        c.Clusters,
		Working:         c.Working,
		Lifecycle:       c.Lifecycle,
		History:         c.History,
		Logger:          logger.Named("tools"),
		ArchiveDefaults: ArchiveCriteria(cfg),
		PruneDefaults:   PruneCriteria(cfg),
	}
}

// Scheduler builds the background cleanup and sweep jobs. The lifecycle
// sweep only runs when enabled in the configuration.
func (c *Components) Scheduler(cfg *config.Config, logger *zap.Logger) *scheduler.Scheduler {
	sc := scheduler.Config{
		CleanupInterval: time.Duration(cfg.WorkingMemory.CleanupIntervalMinutes) * time.Minute,
		Archive:         ArchiveCriteria(cfg),
		Prune:           PruneCriteria(cfg),
	}
	if cfg.Lifecycle.SweepEnabled {
		sc.SweepInterval = time.Duration(cfg.Lifecycle.SweepIntervalMinutes) * time.Minute
	}
	return scheduler.NewScheduler(c.Working, c.Lifecycle, logger.Named("scheduler"), sc)
}

// ArchiveCriteria returns the configured archive thresholds
func ArchiveCriteria(cfg *config.Config) lifecycle.ArchiveCriteria {
	return lifecycle.ArchiveCriteria{
		MinAgeDays:    cfg.Lifecycle.ArchiveMinAgeDays,
		MaxImportance: cfg.Lifecycle.ArchiveMaxImportance,
	}
}

// PruneCriteria returns the configured prune thresholds
func PruneCriteria(cfg *config.Config) lifecycle.PruneCriteria {
	return lifecycle.PruneCriteria{
		MaxAgeDays:     cfg.Lifecycle.PruneMaxAgeDays,
		MinImportance:  cfg.Lifecycle.PruneMinImportance,
		MaxAccessCount: cfg.Lifecycle.PruneMaxAccessCount,
		Status:         cfg.Lifecycle.PruneStatus,
	}
}
