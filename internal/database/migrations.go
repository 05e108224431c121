// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Features selects which optional subsystems are deployed. The core
// memory, working-memory and cluster tables are always migrated.
type Features struct {
	Relationships    bool
	History          bool
	ClusterAnalytics bool
}

// AllFeatures enables every optional subsystem
func AllFeatures() Features {
	return Features{Relationships: true, History: true, ClusterAnalytics: true}
}

// CoreModels returns the models every deployment needs. Memory must come
// first so that its relationships register the cascade constraints on the
// extension tables.
func CoreModels() []interface{} {
	return []interface{}{
		&Memory{},
		&EpisodicMemory{},
		&SemanticMemory{},
		&ProceduralMemory{},
		&StrategicMemory{},
		&WorkingMemory{},
		&MemoryCluster{},
		&ClusterMember{},
		&ClusterActivation{},
	}
}

// Models returns the models for the given feature set
func Models(f Features) []interface{} {
	models := CoreModels()
	if f.Relationships {
		models = append(models, &MemoryRelationship{})
	}
	if f.History {
		models = append(models, &MemoryChange{})
	}
	if f.ClusterAnalytics {
		models = append(models, &ClusterRelationship{})
	}
	return models
}

// Migrate runs database migrations for the given feature set
func Migrate(db *gorm.DB, f Features) error {
	if err := db.AutoMigrate(Models(f)...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := CreateIndexes(db); err != nil {
		return err
	}
	return nil
}

// CreateIndexes creates composite indexes for the hot query paths. Tables
// that are not deployed are skipped.
func CreateIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		columns []string
		name    string
	}{
		{
			table:   "memories",
			columns: []string{"status", "importance"},
			name:    "idx_memories_status_importance",
		},
		{
			table:   "memories",
			columns: []string{"status", "created_at"},
			name:    "idx_memories_status_created",
		},
		{
			table:   "memories",
			columns: []string{"type", "status"},
			name:    "idx_memories_type_status",
		},
		{
			table:   "memory_relationships",
			columns: []string{"from_memory_id", "strength"},
			name:    "idx_relationships_from_strength",
		},
		{
			table:   "memory_relationships",
			columns: []string{"to_memory_id", "relationship_type"},
			name:    "idx_relationships_to_type",
		},
		{
			table:   "memory_changes",
			columns: []string{"memory_id", "changed_at"},
			name:    "idx_changes_memory_changed",
		},
		{
			table:   "cluster_activation_history",
			columns: []string{"cluster_id", "activated_at"},
			name:    "idx_activations_cluster_time",
		},
	}

	for _, idx := range indexes {
		if !db.Migrator().HasTable(idx.table) {
			continue
		}
		if db.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}
		sql := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			idx.name, idx.table, joinColumns(idx.columns))
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

// joinColumns joins column names with commas
func joinColumns(columns []string) string {
	result := ""
	for i, col := range columns {
		if i > 0 {
			result += ", "
		}
		result += col
	}
	return result
}
