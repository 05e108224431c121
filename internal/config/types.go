// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import "slices"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Memory        MemoryConfig        `mapstructure:"memory"`
	Features      FeaturesConfig      `mapstructure:"features"`
	Clusters      ClustersConfig      `mapstructure:"clusters"`
	WorkingMemory WorkingMemoryConfig `mapstructure:"working_memory"`
	Lifecycle     LifecycleConfig     `mapstructure:"lifecycle"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig holds MCP server identity
type ServerConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Type         string `mapstructure:"type"` // "sqlite" or "postgres"
	SQLitePath   string `mapstructure:"sqlite_path"`
	PostgresDSN  string `mapstructure:"postgres_dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	LogLevel     string `mapstructure:"log_level"` // gorm logger: silent, error, warn, info
}

// MemoryConfig holds memory store settings
type MemoryConfig struct {
	EmbeddingDimensions int     `mapstructure:"embedding_dimensions"`
	DefaultDecayRate    float64 `mapstructure:"default_decay_rate"`
}

// FeaturesConfig selects the optional subsystems to deploy
type FeaturesConfig struct {
	Relationships    bool `mapstructure:"relationships"`
	History          bool `mapstructure:"history"`
	ClusterAnalytics bool `mapstructure:"cluster_analytics"`
}

// ClustersConfig holds cluster assignment settings
type ClustersConfig struct {
	AffinityThreshold         float64 `mapstructure:"affinity_threshold"`
	KeywordThreshold          float64 `mapstructure:"keyword_threshold"`
	CoActivationWindowSeconds int     `mapstructure:"co_activation_window_seconds"`
	AssignWorkers             int     `mapstructure:"assign_workers"`
	AssignQueueSize           int     `mapstructure:"assign_queue_size"`
}

// WorkingMemoryConfig holds working memory settings
type WorkingMemoryConfig struct {
	DefaultTTLSeconds      int `mapstructure:"default_ttl_seconds"`
	CleanupIntervalMinutes int `mapstructure:"cleanup_interval_minutes"` // 0 disables the sweep
}

// LifecycleConfig holds the periodic archive and prune sweep settings
type LifecycleConfig struct {
	SweepEnabled         bool    `mapstructure:"sweep_enabled"`
	SweepIntervalMinutes int     `mapstructure:"sweep_interval_minutes"`
	ArchiveMinAgeDays    int     `mapstructure:"archive_min_age_days"`
	ArchiveMaxImportance float64 `mapstructure:"archive_max_importance"`
	PruneMaxAgeDays      int     `mapstructure:"prune_max_age_days"`
	PruneMinImportance   float64 `mapstructure:"prune_min_importance"`
	PruneMaxAccessCount  int64   `mapstructure:"prune_max_access_count"`
	PruneStatus          string  `mapstructure:"prune_status"`
}

// LoggingConfig holds zap logger settings
type LoggingConfig struct {
	Level       string `mapstructure:"level"` // debug, info, warn, error
	Development bool   `mapstructure:"development"`
}

// Log levels accepted by logging.level
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// ValidLogLevels returns all valid logging.level values
func ValidLogLevels() []string {
	return []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}
}

// ValidDBLogLevels returns all valid database.log_level values
func ValidDBLogLevels() []string {
	return []string{"silent", "error", "warn", "info"}
}

// IsValidLogLevel checks if a logging level is valid
func IsValidLogLevel(level string) bool {
	return slices.Contains(ValidLogLevels(), level)
}
