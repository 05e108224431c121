// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package working stores short-lived, TTL-bound working memory.
package working

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/embeddings"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultTTL is the lifetime of a working memory created without one
const DefaultTTL = time.Hour

// Store owns working memory rows
type Store struct {
	db         *gorm.DB
	logger     *zap.Logger
	dimensions int
	defaultTTL time.Duration
	now        func() time.Time
}

// NewStore creates a new working memory store. A non-positive
// defaultTTL falls back to DefaultTTL.
func NewStore(db *gorm.DB, logger *zap.Logger, dimensions int, defaultTTL time.Duration) *Store {
	if dimensions <= 0 {
		dimensions = embeddings.DefaultDimensions
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Store{
		db:         db,
		logger:     logger,
		dimensions: dimensions,
		defaultTTL: defaultTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a working memory expiring ttl from now. A zero ttl uses
// the store default.
func (s *Store) Create(ctx context.Context, content string, embedding []float32, ttl time.Duration) (*database.WorkingMemory, error) {
	const op = "working.Create"

	if strings.TrimSpace(content) == "" {
		return nil, memerr.Validation(op, "content is required")
	}
	if err := embeddings.CheckDimensions(embedding, s.dimensions); err != nil {
		return nil, memerr.Validation(op, "%v", err)
	}
	if ttl < 0 {
		return nil, memerr.Validation(op, "ttl must not be negative, got %v", ttl)
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}

	now := s.now()
	expiry := now.Add(ttl)
	wm := &database.WorkingMemory{
		ID:        uuid.NewString(),
		Content:   content,
		Embedding: embeddings.Vector(embedding),
		CreatedAt: now,
		Expiry:    &expiry,
	}
	if err := s.db.WithContext(ctx).Create(wm).Error; err != nil {
		return nil, memerr.FromDB(op, fmt.Errorf("failed to create working memory: %w", err))
	}
	return wm, nil
}

// List returns working memories newest first. Rows whose expiry has
// passed are excluded unless includeExpired is set.
func (s *Store) List(ctx context.Context, includeExpired bool) ([]database.WorkingMemory, error) {
	const op = "working.List"

	q := s.db.WithContext(ctx).Omit("embedding")
	if !includeExpired {
		q = q.Where("expiry IS NULL OR expiry > ?", s.now())
	}

	items := []database.WorkingMemory{}
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, memerr.FromDB(op, fmt.Errorf("failed to list working memory: %w", err))
	}
	return items, nil
}

// Cleanup deletes expired working memories and returns them
func (s *Store) Cleanup(ctx context.Context) ([]database.WorkingMemory, error) {
	const op = "working.Cleanup"

	deleted := []database.WorkingMemory{}
	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Omit("embedding").
			Where("expiry IS NOT NULL AND expiry <= ?", now).
			Find(&deleted).Error
		if err != nil {
			return fmt.Errorf("failed to find expired working memory: %w", err)
		}
		if len(deleted) == 0 {
			return nil
		}

		ids := make([]string, 0, len(deleted))
		for _, wm := range deleted {
			ids = append(ids, wm.ID)
		}
		if err := tx.Where("id IN ?", ids).Delete(&database.WorkingMemory{}).Error; err != nil {
			return fmt.Errorf("failed to delete expired working memory: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, memerr.FromDB(op, err)
	}

	if len(deleted) > 0 {
		s.logger.Info("expired working memory removed", zap.Int("count", len(deleted)))
	}
	return deleted, nil
}
