// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package lifecycle

import (
	"context"
	"fmt"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// archiveAccessLimit excludes memories read this often from archival
const archiveAccessLimit = 5

// ArchiveCriteria selects active memories to archive
type ArchiveCriteria struct {
	MinAgeDays    int
	MaxImportance float64
}

// DefaultArchiveCriteria returns a year of age and importance below 0.3
func DefaultArchiveCriteria() ArchiveCriteria {
	return ArchiveCriteria{MinAgeDays: 365, MaxImportance: 0.3}
}

// PruneCriteria selects memories to mark deleted
type PruneCriteria struct {
	MaxAgeDays     int
	MinImportance  float64
	MaxAccessCount int64
	Status         string
}

// DefaultPruneCriteria returns the criteria for pruning old, unimportant,
// rarely read archived memories.
func DefaultPruneCriteria() PruneCriteria {
	return PruneCriteria{
		MaxAgeDays:     1095,
		MinImportance:  0.1,
		MaxAccessCount: 2,
		Status:         database.StatusArchived,
	}
}

// Failure is a memory whose transition failed
type Failure struct {
	MemoryID string `json:"memory_id"`
	Error    string `json:"error"`
}

// Report lists the memories a batch transitioned and the ones it could
// not. Memories that stopped matching the criteria are in neither list.
type Report struct {
	Transitioned []string  `json:"transitioned"`
	Failures     []Failure `json:"failures"`
}

// transition describes one batch status change
type transition struct {
	op         string
	from       string
	to         string
	changeType string
	criteria   func(*gorm.DB) *gorm.DB
	extra      map[string]any
}

// Archive moves active memories to archived when they are at least
// MinAgeDays old, less important than MaxImportance and read fewer than
// five times.
func (m *Manager) Archive(ctx context.Context, c ArchiveCriteria) (*Report, error) {
	const op = "lifecycle.Archive"

	if c.MinAgeDays < 0 {
		return nil, memerr.Validation(op, "min age days must not be negative, got %d", c.MinAgeDays)
	}
	if c.MaxImportance < 0 || c.MaxImportance > 1 {
		return nil, memerr.Validation(op, "max importance must be between 0 and 1, got %v", c.MaxImportance)
	}

	cutoff := m.now().AddDate(0, 0, -c.MinAgeDays)
	return m.run(ctx, transition{
		op:         op,
		from:       database.StatusActive,
		to:         database.StatusArchived,
		changeType: database.ChangeArchival,
		criteria: func(db *gorm.DB) *gorm.DB {
			return db.Where("created_at <= ? AND importance < ? AND access_count < ?",
				cutoff, c.MaxImportance, archiveAccessLimit)
		},
		extra: map[string]any{"min_age_days": c.MinAgeDays, "max_importance": c.MaxImportance},
	})
}

// Prune marks memories in Status deleted when they are at least
// MaxAgeDays old, less important than MinImportance and read at most
// MaxAccessCount times.
func (m *Manager) Prune(ctx context.Context, c PruneCriteria) (*Report, error) {
	const op = "lifecycle.Prune"

	if c.Status == "" {
		c.Status = database.StatusArchived
	}
	if !database.IsValidStatus(c.Status) || c.Status == database.StatusDeleted {
		return nil, memerr.Validation(op, "cannot prune memories in status %q", c.Status)
	}
	if c.MaxAgeDays < 0 {
		return nil, memerr.Validation(op, "max age days must not be negative, got %d", c.MaxAgeDays)
	}
	if c.MinImportance < 0 || c.MinImportance > 1 {
		return nil, memerr.Validation(op, "min importance must be between 0 and 1, got %v", c.MinImportance)
	}
	if c.MaxAccessCount < 0 {
		return nil, memerr.Validation(op, "max access count must not be negative, got %d", c.MaxAccessCount)
	}

	cutoff := m.now().AddDate(0, 0, -c.MaxAgeDays)
	return m.run(ctx, transition{
		op:         op,
		from:       c.Status,
		to:         database.StatusDeleted,
		changeType: database.ChangeDeletion,
		criteria: func(db *gorm.DB) *gorm.DB {
			return db.Where("created_at <= ? AND importance < ? AND access_count <= ?",
				cutoff, c.MinImportance, c.MaxAccessCount)
		},
		extra: map[string]any{"max_age_days": c.MaxAgeDays, "min_importance": c.MinImportance},
	})
}

// run selects candidates, then transitions each in its own transaction
// with the criteria re-checked by the UPDATE. A row changed concurrently
// so that it no longer matches is skipped silently.
func (m *Manager) run(ctx context.Context, t transition) (*Report, error) {
	db := m.db.WithContext(ctx)

	var ids []string
	err := t.criteria(db.Model(&database.Memory{}).Where("status = ?", t.from)).
		Order("created_at").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, memerr.FromDB(t.op, fmt.Errorf("failed to select candidates: %w", err))
	}

	report := &Report{Transitioned: []string{}, Failures: []Failure{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, memerr.FromDB(t.op, err)
		}

		moved, err := m.transitionOne(db, t, id)
		if err != nil {
			m.logger.Warn("memory transition failed",
				zap.String("op", t.op),
				zap.String("memory_id", id),
				zap.Error(err))
			report.Failures = append(report.Failures, Failure{MemoryID: id, Error: err.Error()})
			continue
		}
		if moved {
			report.Transitioned = append(report.Transitioned, id)
		}
	}

	m.logger.Info("memory transition batch finished",
		zap.String("op", t.op),
		zap.String("to", t.to),
		zap.Int("candidates", len(ids)),
		zap.Int("transitioned", len(report.Transitioned)),
		zap.Int("failed", len(report.Failures)))
	return report, nil
}

func (m *Manager) transitionOne(db *gorm.DB, t transition, id string) (bool, error) {
	moved := false
	err := db.Transaction(func(tx *gorm.DB) error {
		res := t.criteria(tx.Model(&database.Memory{}).Where("id = ? AND status = ?", id, t.from)).
			UpdateColumns(map[string]interface{}{
				"status":     t.to,
				"updated_at": m.now(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		newValue := map[string]any{"status": t.to}
		for k, v := range t.extra {
			newValue[k] = v
		}
		if _, err := m.history.Record(tx, id, t.changeType, map[string]any{"status": t.from}, newValue); err != nil {
			return err
		}
		moved = true
		return nil
	})
	return moved, err
}
