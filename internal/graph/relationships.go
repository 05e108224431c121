// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package graph manages directed, weighted relationships between memories.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Query directions
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
	DirectionBoth     = "both"
)

// Manager handles graph operations
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
	caps   database.Capabilities
}

// NewManager creates a new graph manager
func NewManager(db *gorm.DB, logger *zap.Logger, caps database.Capabilities) *Manager {
	return &Manager{db: db, logger: logger, caps: caps}
}

// Enabled reports whether the relationship table is deployed
func (m *Manager) Enabled() bool {
	return m.caps.Relationships()
}

// CreateParams holds the input for Create
type CreateParams struct {
	From     string
	To       string
	Type     string
	Strength *float64
	// Properties is stored verbatim as a JSON object.
	Properties map[string]any
}

// Create inserts an edge between two existing memories. Duplicate
// (from, to, type) edges are accepted. Returns nil when the graph is not
// deployed.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*database.MemoryRelationship, error) {
	const op = "graph.Create"

	if !m.caps.Relationships() {
		return nil, nil
	}
	if !database.IsValidRelationshipType(p.Type) {
		return nil, memerr.Validation(op, "unknown relationship type %q, must be one of %s",
			p.Type, strings.Join(database.ValidRelationshipTypes(), ", "))
	}

	strength := database.DefaultRelationshipStrength
	if p.Strength != nil {
		strength = *p.Strength
	}
	if strength < 0 || strength > 1 {
		return nil, memerr.Validation(op, "strength must be between 0 and 1, got %v", strength)
	}

	db := m.db.WithContext(ctx)
	for _, id := range []string{p.From, p.To} {
		if err := requireMemory(db, op, id); err != nil {
			return nil, err
		}
	}

	rel, err := CreateTx(db, p.From, p.To, p.Type, strength, p.Properties)
	if err != nil {
		return nil, memerr.FromDB(op, err)
	}

	m.logger.Debug("relationship created",
		zap.String("from", p.From),
		zap.String("to", p.To),
		zap.String("type", p.Type),
		zap.Float64("strength", strength))
	return rel, nil
}

// Edge is a relationship seen from one of its endpoints
type Edge struct {
	database.MemoryRelationship
	RelatedMemoryID string `json:"related_memory_id"`
	Direction       string `json:"direction"`
}

// Query returns the edges touching memoryID, ordered by strength then
// recency. An empty typeFilter matches every type.
func (m *Manager) Query(ctx context.Context, memoryID, direction, typeFilter string) ([]Edge, error) {
	const op = "graph.Query"

	edges := []Edge{}
	if direction == "" {
		direction = DirectionBoth
	}
	switch direction {
	case DirectionIncoming, DirectionOutgoing, DirectionBoth:
	default:
		return nil, memerr.Validation(op, "direction must be one of incoming, outgoing, both, got %q", direction)
	}
	if !m.caps.Relationships() {
		return edges, nil
	}
	if _, err := uuid.Parse(memoryID); err != nil {
		return edges, nil
	}

	q := m.db.WithContext(ctx).Model(&database.MemoryRelationship{})
	switch direction {
	case DirectionOutgoing:
		q = q.Where("from_memory_id = ?", memoryID)
	case DirectionIncoming:
		q = q.Where("to_memory_id = ?", memoryID)
	default:
		q = q.Where("from_memory_id = ? OR to_memory_id = ?", memoryID, memoryID)
	}
	if typeFilter != "" {
		q = q.Where("relationship_type = ?", typeFilter)
	}

	var rels []database.MemoryRelationship
	if err := q.Order("strength DESC").Order("created_at DESC").Find(&rels).Error; err != nil {
		return nil, memerr.FromDB(op, fmt.Errorf("failed to get relationships: %w", err))
	}

	for _, rel := range rels {
		e := Edge{MemoryRelationship: rel}
		if rel.FromMemoryID == memoryID {
			e.RelatedMemoryID = rel.ToMemoryID
			e.Direction = DirectionOutgoing
		} else {
			e.RelatedMemoryID = rel.FromMemoryID
			e.Direction = DirectionIncoming
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// CreateTx inserts a relationship using tx, so it commits or rolls back
// with the surrounding transaction. Endpoints are not re-checked.
func CreateTx(tx *gorm.DB, from, to, relType string, strength float64, properties map[string]any) (*database.MemoryRelationship, error) {
	var props datatypes.JSON
	if properties != nil {
		b, err := json.Marshal(properties)
		if err != nil {
			return nil, fmt.Errorf("failed to encode relationship properties: %w", err)
		}
		props = datatypes.JSON(b)
	}
	rel := &database.MemoryRelationship{
		ID:               uuid.NewString(),
		FromMemoryID:     from,
		ToMemoryID:       to,
		RelationshipType: relType,
		Strength:         strength,
		Properties:       props,
		CreatedAt:        time.Now().UTC(),
	}
	if err := tx.Create(rel).Error; err != nil {
		return nil, fmt.Errorf("failed to create relationship: %w", err)
	}
	return rel, nil
}

func requireMemory(db *gorm.DB, op, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return memerr.NotFound(op, "memory", id)
	}
	var count int64
	if err := db.Model(&database.Memory{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return memerr.FromDB(op, err)
	}
	if count == 0 {
		return memerr.NotFound(op, "memory", id)
	}
	return nil
}
