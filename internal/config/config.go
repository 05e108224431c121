// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigDir is the default configuration directory
	DefaultConfigDir = ".agi-memory/configs"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.json"
	// DefaultDBPath is the default sqlite database path under the home directory
	DefaultDBPath = ".agi-memory/db/memory.db"
)

// Load reads configuration from ~/.agi-memory/configs/config.json. A
// missing file yields the defaults.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(homeDir, DefaultConfigDir))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.name", d.Server.Name)
	v.SetDefault("server.version", d.Server.Version)

	v.SetDefault("database.type", d.Database.Type)
	v.SetDefault("database.sqlite_path", d.Database.SQLitePath)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.log_level", d.Database.LogLevel)

	v.SetDefault("memory.embedding_dimensions", d.Memory.EmbeddingDimensions)
	v.SetDefault("memory.default_decay_rate", d.Memory.DefaultDecayRate)

	v.SetDefault("features.relationships", d.Features.Relationships)
	v.SetDefault("features.history", d.Features.History)
	v.SetDefault("features.cluster_analytics", d.Features.ClusterAnalytics)

	v.SetDefault("clusters.affinity_threshold", d.Clusters.AffinityThreshold)
	v.SetDefault("clusters.keyword_threshold", d.Clusters.KeywordThreshold)
	v.SetDefault("clusters.co_activation_window_seconds", d.Clusters.CoActivationWindowSeconds)
	v.SetDefault("clusters.assign_workers", d.Clusters.AssignWorkers)
	v.SetDefault("clusters.assign_queue_size", d.Clusters.AssignQueueSize)

	v.SetDefault("working_memory.default_ttl_seconds", d.WorkingMemory.DefaultTTLSeconds)
	v.SetDefault("working_memory.cleanup_interval_minutes", d.WorkingMemory.CleanupIntervalMinutes)

	v.SetDefault("lifecycle.sweep_enabled", d.Lifecycle.SweepEnabled)
	v.SetDefault("lifecycle.sweep_interval_minutes", d.Lifecycle.SweepIntervalMinutes)
	v.SetDefault("lifecycle.archive_min_age_days", d.Lifecycle.ArchiveMinAgeDays)
	v.SetDefault("lifecycle.archive_max_importance", d.Lifecycle.ArchiveMaxImportance)
	v.SetDefault("lifecycle.prune_max_age_days", d.Lifecycle.PruneMaxAgeDays)
	v.SetDefault("lifecycle.prune_min_importance", d.Lifecycle.PruneMinImportance)
	v.SetDefault("lifecycle.prune_max_access_count", d.Lifecycle.PruneMaxAccessCount)
	v.SetDefault("lifecycle.prune_status", d.Lifecycle.PruneStatus)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.development", d.Logging.Development)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	cfg.Database.Type = strings.ToLower(cfg.Database.Type)
	if cfg.Database.Type != "sqlite" && cfg.Database.Type != "postgres" {
		return fmt.Errorf("database.type must be 'sqlite' or 'postgres', got '%s'", cfg.Database.Type)
	}
	if cfg.Database.Type == "sqlite" && cfg.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required when type is 'sqlite'")
	}
	if cfg.Database.Type == "postgres" && cfg.Database.PostgresDSN == "" {
		return fmt.Errorf("database.postgres_dsn is required when type is 'postgres'")
	}
	if cfg.Database.MaxOpenConns < 0 {
		return fmt.Errorf("database.max_open_conns must not be negative, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.LogLevel != "" && !slices.Contains(ValidDBLogLevels(), cfg.Database.LogLevel) {
		return fmt.Errorf("database.log_level must be one of %s, got '%s'",
			strings.Join(ValidDBLogLevels(), ", "), cfg.Database.LogLevel)
	}

	if cfg.Memory.EmbeddingDimensions < 1 {
		return fmt.Errorf("memory.embedding_dimensions must be at least 1, got %d", cfg.Memory.EmbeddingDimensions)
	}
	if cfg.Memory.DefaultDecayRate < 0 {
		return fmt.Errorf("memory.default_decay_rate must not be negative, got %v", cfg.Memory.DefaultDecayRate)
	}

	if err := unitInterval("clusters.affinity_threshold", cfg.Clusters.AffinityThreshold); err != nil {
		return err
	}
	if err := unitInterval("clusters.keyword_threshold", cfg.Clusters.KeywordThreshold); err != nil {
		return err
	}
	if cfg.Clusters.CoActivationWindowSeconds < 1 {
		return fmt.Errorf("clusters.co_activation_window_seconds must be at least 1, got %d", cfg.Clusters.CoActivationWindowSeconds)
	}
	if cfg.Clusters.AssignWorkers < 1 {
		return fmt.Errorf("clusters.assign_workers must be at least 1, got %d", cfg.Clusters.AssignWorkers)
	}
	if cfg.Clusters.AssignQueueSize < 1 {
		return fmt.Errorf("clusters.assign_queue_size must be at least 1, got %d", cfg.Clusters.AssignQueueSize)
	}

	if cfg.WorkingMemory.DefaultTTLSeconds < 1 {
		return fmt.Errorf("working_memory.default_ttl_seconds must be at least 1, got %d", cfg.WorkingMemory.DefaultTTLSeconds)
	}
	if cfg.WorkingMemory.CleanupIntervalMinutes < 0 {
		return fmt.Errorf("working_memory.cleanup_interval_minutes must not be negative, got %d", cfg.WorkingMemory.CleanupIntervalMinutes)
	}

	lc := cfg.Lifecycle
	if lc.SweepEnabled && lc.SweepIntervalMinutes < 1 {
		return fmt.Errorf("lifecycle.sweep_interval_minutes must be at least 1, got %d", lc.SweepIntervalMinutes)
	}
	if lc.ArchiveMinAgeDays < 0 || lc.PruneMaxAgeDays < 0 {
		return fmt.Errorf("lifecycle age thresholds must not be negative")
	}
	if err := unitInterval("lifecycle.archive_max_importance", lc.ArchiveMaxImportance); err != nil {
		return err
	}
	if err := unitInterval("lifecycle.prune_min_importance", lc.PruneMinImportance); err != nil {
		return err
	}
	if lc.PruneMaxAccessCount < 0 {
		return fmt.Errorf("lifecycle.prune_max_access_count must not be negative, got %d", lc.PruneMaxAccessCount)
	}
	if !database.IsValidStatus(lc.PruneStatus) || lc.PruneStatus == database.StatusDeleted {
		return fmt.Errorf("lifecycle.prune_status must be a status other than 'deleted', got '%s'", lc.PruneStatus)
	}

	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if !IsValidLogLevel(cfg.Logging.Level) {
		return fmt.Errorf("logging.level must be one of %s, got '%s'",
			strings.Join(ValidLogLevels(), ", "), cfg.Logging.Level)
	}

	return nil
}

func unitInterval(key string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be between 0 and 1, got %v", key, v)
	}
	return nil
}

// ApplyEnv overrides database and logging settings from the environment:
// AGI_MEMORY_DB_TYPE, AGI_MEMORY_DB_PATH, AGI_MEMORY_DB_DSN and
// AGI_MEMORY_LOG_LEVEL. The result is validated again.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("AGI_MEMORY_DB_TYPE"); v != "" {
		cfg.Database.Type = v
	}
	if v := os.Getenv("AGI_MEMORY_DB_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("AGI_MEMORY_DB_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
	}
	if v := os.Getenv("AGI_MEMORY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if err := validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Resolve loads the configuration from path, or from the default
// location when path is empty, then applies environment overrides.
func Resolve(path string) (*Config, error) {
	var cfg *Config
	var err error
	if path != "" {
		cfg, err = LoadFromPath(path)
	} else {
		cfg, err = Load()
	}
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, DefaultConfigDir)
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Server: ServerConfig{
			Name:    "agi-memory",
			Version: "1.0.0",
		},
		Database: DatabaseConfig{
			Type:       "sqlite",
			SQLitePath: filepath.Join(homeDir, DefaultDBPath),
			LogLevel:   "silent",
		},
		Memory: MemoryConfig{
			EmbeddingDimensions: 1536,
			DefaultDecayRate:    0.01,
		},
		Features: FeaturesConfig{
			Relationships:    true,
			History:          true,
			ClusterAnalytics: true,
		},
		Clusters: ClustersConfig{
			AffinityThreshold:         0.7,
			KeywordThreshold:          0.5,
			CoActivationWindowSeconds: 300,
			AssignWorkers:             2,
			AssignQueueSize:           256,
		},
		WorkingMemory: WorkingMemoryConfig{
			DefaultTTLSeconds:      3600,
			CleanupIntervalMinutes: 10,
		},
		Lifecycle: LifecycleConfig{
			SweepEnabled:         false,
			SweepIntervalMinutes: 1440,
			ArchiveMinAgeDays:    365,
			ArchiveMaxImportance: 0.3,
			PruneMaxAgeDays:      1095,
			PruneMinImportance:   0.1,
			PruneMaxAccessCount:  2,
			PruneStatus:          database.StatusArchived,
		},
		Logging: LoggingConfig{
			Level: LogLevelInfo,
		},
	}
}

// DatabaseFeatures converts the feature flags for migrations
func (c *Config) DatabaseFeatures() database.Features {
	return database.Features{
		Relationships:    c.Features.Relationships,
		History:          c.Features.History,
		ClusterAnalytics: c.Features.ClusterAnalytics,
	}
}

// CoActivationWindow returns the co-activation window as a duration
func (c *Config) CoActivationWindow() time.Duration {
	return time.Duration(c.Clusters.CoActivationWindowSeconds) * time.Second
}

// WorkingMemoryTTL returns the default working memory lifetime
func (c *Config) WorkingMemoryTTL() time.Duration {
	return time.Duration(c.WorkingMemory.DefaultTTLSeconds) * time.Second
}
