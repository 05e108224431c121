// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package lifecycle consolidates, archives and prunes memories.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/graph"
	"github.com/cognitivecomputations/agi-mcp-server/internal/history"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memory"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConsolidatedImportance is the importance of a consolidated memory
const ConsolidatedImportance = 0.8

// Manager runs state transitions that span several memories
type Manager struct {
	db      *gorm.DB
	logger  *zap.Logger
	caps    database.Capabilities
	store   *memory.Store
	history *history.Log
	now     func() time.Time
}

// NewManager creates a new lifecycle manager
func NewManager(db *gorm.DB, logger *zap.Logger, caps database.Capabilities, store *memory.Store, hist *history.Log) *Manager {
	return &Manager{
		db:      db,
		logger:  logger,
		caps:    caps,
		store:   store,
		history: hist,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Consolidation is the outcome of Consolidate
type Consolidation struct {
	Memory          *database.Memory `json:"memory"`
	SourceMemoryIDs []string         `json:"source_memory_ids"`
}

// Consolidate merges source memories into a new semantic memory. In one
// transaction it creates the memory, links every source to it with a
// consolidation edge, marks every source consolidated and logs the
// changes. Any failure leaves nothing behind.
func (m *Manager) Consolidate(ctx context.Context, sourceIDs []string, content string, embedding []float32) (*Consolidation, error) {
	const op = "lifecycle.Consolidate"

	if !m.caps.Relationships() {
		return nil, memerr.Unavailable(op, "memory relationship graph")
	}

	ids := dedupe(sourceIDs)
	if len(ids) == 0 {
		return nil, memerr.Validation(op, "at least one source memory is required")
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return nil, memerr.NotFound(op, "memory", id)
		}
	}

	var created *database.Memory
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sources []database.Memory
		if err := tx.Select("id", "status").Where("id IN ?", ids).Find(&sources).Error; err != nil {
			return fmt.Errorf("failed to load source memories: %w", err)
		}
		status := make(map[string]string, len(sources))
		for _, s := range sources {
			status[s.ID] = s.Status
		}
		for _, id := range ids {
			if _, ok := status[id]; !ok {
				return memerr.NotFound(op, "memory", id)
			}
		}

		mem, err := m.store.CreateTx(tx, memory.CreateParams{
			Type:       database.MemoryTypeSemantic,
			Content:    content,
			Embedding:  embedding,
			Importance: ConsolidatedImportance,
		})
		if err != nil {
			return err
		}

		now := m.now()
		for _, id := range ids {
			if _, err := graph.CreateTx(tx, id, mem.ID, database.RelationshipConsolidation, 1.0, nil); err != nil {
				return err
			}
			err := tx.Model(&database.Memory{}).Where("id = ?", id).
				UpdateColumns(map[string]interface{}{
					"status":     database.StatusConsolidated,
					"updated_at": now,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to mark %s consolidated: %w", id, err)
			}
			_, err = m.history.Record(tx, id, database.ChangeStatus,
				map[string]any{"status": status[id]},
				map[string]any{"status": database.StatusConsolidated, "consolidated_into": mem.ID})
			if err != nil {
				return err
			}
		}

		_, err = m.history.Record(tx, mem.ID, database.ChangeConsolidation, nil,
			map[string]any{"source_memories": ids})
		if err != nil {
			return err
		}

		created = mem
		return nil
	})
	if err != nil {
		return nil, memerr.FromDB(op, err)
	}

	m.store.Announce(created.ID)
	m.logger.Info("memories consolidated",
		zap.String("memory_id", created.ID),
		zap.Int("sources", len(ids)))
	return &Consolidation{Memory: created, SourceMemoryIDs: ids}, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
