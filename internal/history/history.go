// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package history keeps the append-only audit trail of memory changes.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Log records and lists change events. When the history table is not
// deployed every method is a no-op returning empty results.
type Log struct {
	db     *gorm.DB
	logger *zap.Logger
	caps   database.Capabilities
}

// NewLog creates a new change log
func NewLog(db *gorm.DB, logger *zap.Logger, caps database.Capabilities) *Log {
	return &Log{db: db, logger: logger, caps: caps}
}

// Enabled reports whether change events are persisted
func (l *Log) Enabled() bool {
	return l.caps.History()
}

// Record appends an event using tx, so that it commits or rolls back
// with the change it describes.
func (l *Log) Record(tx *gorm.DB, memoryID, changeType string, oldValue, newValue any) (*database.MemoryChange, error) {
	if !l.caps.History() {
		return nil, nil
	}

	oldJSON, err := encode(oldValue)
	if err != nil {
		return nil, err
	}
	newJSON, err := encode(newValue)
	if err != nil {
		return nil, err
	}

	change := database.MemoryChange{
		ID:         uuid.NewString(),
		MemoryID:   memoryID,
		ChangedAt:  time.Now().UTC(),
		ChangeType: changeType,
		OldValue:   oldJSON,
		NewValue:   newJSON,
	}
	if err := tx.Create(&change).Error; err != nil {
		return nil, fmt.Errorf("failed to record %s change: %w", changeType, err)
	}
	return &change, nil
}

// List returns the events of a memory, newest first
func (l *Log) List(ctx context.Context, memoryID string) ([]database.MemoryChange, error) {
	changes := []database.MemoryChange{}
	if !l.caps.History() {
		return changes, nil
	}
	if _, err := uuid.Parse(memoryID); err != nil {
		return changes, nil
	}

	err := l.db.WithContext(ctx).
		Where("memory_id = ?", memoryID).
		Order("changed_at DESC").
		Find(&changes).Error
	if err != nil {
		return nil, memerr.FromDB("history.List", err)
	}
	return changes, nil
}

// Track records an ad-hoc event outside any transaction. Failures are
// logged and reported as a nil event.
func (l *Log) Track(ctx context.Context, memoryID, changeType, description string, metadata map[string]any) *database.MemoryChange {
	if !l.caps.History() {
		return nil
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	change, err := l.Record(l.db.WithContext(ctx), memoryID, changeType, nil, map[string]any{
		"description": description,
		"metadata":    metadata,
	})
	if err != nil {
		l.logger.Warn("memory change tracking failed",
			zap.String("memory_id", memoryID),
			zap.String("change_type", changeType),
			zap.Error(err))
		return nil
	}
	return change
}

func encode(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode change value: %w", err)
	}
	return datatypes.JSON(b), nil
}
