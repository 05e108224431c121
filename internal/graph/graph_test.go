// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/embeddings"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T, f database.Features) *gorm.DB {
	t.Helper()

	db, err := database.Connect(&database.Config{
		Type:         "sqlite",
		SQLitePath:   filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		LogLevel:     logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, database.Migrate(db, f))
	return db
}

func setupTestManager(t *testing.T) (*Manager, *gorm.DB) {
	db := setupTestDB(t, database.AllFeatures())
	return NewManager(db, zap.NewNop(), database.DetectCapabilities(db)), db
}

func createMemory(t *testing.T, db *gorm.DB, content string) string {
	t.Helper()
	mem := database.Memory{
		Type:       database.MemoryTypeEpisodic,
		Status:     database.StatusActive,
		Content:    content,
		Embedding:  embeddings.Vector{1, 0},
		Importance: 0.5,
	}
	require.NoError(t, db.Create(&mem).Error)
	return mem.ID
}

func link(t *testing.T, m *Manager, from, to string, strength float64) {
	t.Helper()
	_, err := m.Create(context.Background(), CreateParams{
		From: from, To: to, Type: database.RelationshipCausal, Strength: &strength,
	})
	require.NoError(t, err)
}

func ptr(f float64) *float64 { return &f }

func TestCreate(t *testing.T) {
	m, db := setupTestManager(t)
	a := createMemory(t, db, "a")
	b := createMemory(t, db, "b")

	tests := []struct {
		name    string
		params  CreateParams
		wantErr error
	}{
		{"default strength", CreateParams{From: a, To: b, Type: database.RelationshipCausal}, nil},
		{"duplicate accepted", CreateParams{From: a, To: b, Type: database.RelationshipCausal}, nil},
		{"with properties", CreateParams{From: b, To: a, Type: database.RelationshipTemporal, Properties: map[string]any{"note": "x"}}, nil},
		{"unknown type", CreateParams{From: a, To: b, Type: "friendship"}, memerr.ErrValidation},
		{"strength too high", CreateParams{From: a, To: b, Type: database.RelationshipCausal, Strength: ptr(1.5)}, memerr.ErrValidation},
		{"missing target", CreateParams{From: a, To: uuid.NewString(), Type: database.RelationshipCausal}, memerr.ErrNotFound},
		{"malformed source", CreateParams{From: "bad", To: b, Type: database.RelationshipCausal}, memerr.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, err := m.Create(context.Background(), tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, rel)
			if tt.params.Strength == nil {
				assert.Equal(t, database.DefaultRelationshipStrength, rel.Strength)
			}
		})
	}

	var count int64
	require.NoError(t, db.Model(&database.MemoryRelationship{}).Where("from_memory_id = ?", a).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestQuery(t *testing.T) {
	m, db := setupTestManager(t)
	ctx := context.Background()
	a := createMemory(t, db, "a")
	b := createMemory(t, db, "b")
	c := createMemory(t, db, "c")

	link(t, m, a, b, 0.9)
	link(t, m, c, a, 0.4)
	_, err := m.Create(ctx, CreateParams{From: a, To: c, Type: database.RelationshipSemantic, Strength: ptr(0.6)})
	require.NoError(t, err)

	both, err := m.Query(ctx, a, DirectionBoth, "")
	require.NoError(t, err)
	require.Len(t, both, 3)
	assert.Equal(t, b, both[0].RelatedMemoryID)
	assert.Equal(t, DirectionOutgoing, both[0].Direction)
	assert.Equal(t, c, both[1].RelatedMemoryID)
	assert.Equal(t, c, both[2].RelatedMemoryID)
	assert.Equal(t, DirectionIncoming, both[2].Direction)

	incoming, err := m.Query(ctx, a, DirectionIncoming, "")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, 0.4, incoming[0].Strength)

	semantic, err := m.Query(ctx, a, "", database.RelationshipSemantic)
	require.NoError(t, err)
	require.Len(t, semantic, 1)
	assert.Equal(t, c, semantic[0].RelatedMemoryID)

	_, err = m.Query(ctx, a, "sideways", "")
	assert.ErrorIs(t, err, memerr.ErrValidation)

	none, err := m.Query(ctx, "not-a-uuid", DirectionBoth, "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTraverse_DefaultStrengthReachesNeighbor(t *testing.T) {
	m, db := setupTestManager(t)
	ctx := context.Background()
	a := createMemory(t, db, "a")
	b := createMemory(t, db, "b")

	_, err := m.Create(ctx, CreateParams{From: a, To: b, Type: database.RelationshipCausal})
	require.NoError(t, err)

	related, err := m.Traverse(ctx, a, DefaultMaxDepth, DefaultMinStrength)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, b, related[0].MemoryID)
	assert.Equal(t, 1, related[0].Depth)
	assert.Equal(t, database.DefaultRelationshipStrength, related[0].Strength)
	assert.Equal(t, []string{a, b}, related[0].Path)
	assert.Equal(t, database.RelationshipCausal, related[0].RelationshipType)
}

func TestTraverse_StrengthDepthAndCycles(t *testing.T) {
	m, db := setupTestManager(t)
	ctx := context.Background()
	a := createMemory(t, db, "a")
	b := createMemory(t, db, "b")
	c := createMemory(t, db, "c")
	d := createMemory(t, db, "d")
	e := createMemory(t, db, "e")

	link(t, m, a, b, 0.9)
	link(t, m, b, c, 0.8) // 0.72
	link(t, m, b, a, 1.0) // cycle back to seed
	link(t, m, a, d, 0.5)
	link(t, m, d, e, 0.5) // 0.25, below threshold
	link(t, m, c, e, 1.0) // depth 3, beyond maxDepth

	related, err := m.Traverse(ctx, a, 2, 0.3)
	require.NoError(t, err)

	ids := make([]string, 0, len(related))
	for _, r := range related {
		ids = append(ids, r.MemoryID)
		assert.GreaterOrEqual(t, r.Strength, 0.3)
		assert.LessOrEqual(t, r.Depth, 2)
		assert.NotContains(t, r.Path[1:], a)
	}
	assert.Equal(t, []string{b, c, d}, ids)
	assert.InDelta(t, 0.72, related[1].Strength, 1e-9)
	assert.Equal(t, 2, related[1].Depth)

	deeper, err := m.Traverse(ctx, a, 3, 0.3)
	require.NoError(t, err)
	assert.Len(t, deeper, 4)
}

func TestTraverse_DiamondYieldsBothPaths(t *testing.T) {
	m, db := setupTestManager(t)
	ctx := context.Background()
	a := createMemory(t, db, "a")
	b := createMemory(t, db, "b")
	c := createMemory(t, db, "c")
	d := createMemory(t, db, "d")

	link(t, m, a, b, 1.0)
	link(t, m, a, c, 0.8)
	link(t, m, b, d, 0.9)
	link(t, m, c, d, 0.9)

	related, err := m.Traverse(ctx, a, 2, 0.1)
	require.NoError(t, err)

	var viaD []Related
	for _, r := range related {
		if r.MemoryID == d {
			viaD = append(viaD, r)
		}
	}
	require.Len(t, viaD, 2)
	assert.Equal(t, []string{a, b, d}, viaD[0].Path)
	assert.Equal(t, []string{a, c, d}, viaD[1].Path)
}

func TestTraverse_SkipsInactiveResults(t *testing.T) {
	m, db := setupTestManager(t)
	ctx := context.Background()
	a := createMemory(t, db, "a")
	b := createMemory(t, db, "b")
	c := createMemory(t, db, "c")

	link(t, m, a, b, 1.0)
	link(t, m, b, c, 1.0)
	require.NoError(t, db.Model(&database.Memory{}).Where("id = ?", b).Update("status", database.StatusArchived).Error)

	related, err := m.Traverse(ctx, a, 2, 0.3)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, c, related[0].MemoryID)
}

func TestTraverse_Validation(t *testing.T) {
	m, db := setupTestManager(t)
	ctx := context.Background()
	a := createMemory(t, db, "a")

	tests := []struct {
		name        string
		maxDepth    int
		minStrength float64
	}{
		{"zero depth", 0, DefaultMinStrength},
		{"negative depth", -1, DefaultMinStrength},
		{"depth above limit", MaxDepthLimit + 1, DefaultMinStrength},
		{"strength above one", DefaultMaxDepth, 1.5},
		{"negative strength", DefaultMaxDepth, -0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Traverse(ctx, a, tt.maxDepth, tt.minStrength)
			assert.ErrorIs(t, err, memerr.ErrValidation)
		})
	}

	related, err := m.Traverse(ctx, a, MaxDepthLimit, DefaultMinStrength)
	require.NoError(t, err)
	assert.Empty(t, related)
}

func TestDisabledGraphFailsSoft(t *testing.T) {
	db := setupTestDB(t, database.Features{})
	m := NewManager(db, zap.NewNop(), database.DetectCapabilities(db))
	ctx := context.Background()
	a := createMemory(t, db, "a")
	b := createMemory(t, db, "b")

	assert.False(t, m.Enabled())

	rel, err := m.Create(ctx, CreateParams{From: a, To: b, Type: database.RelationshipCausal})
	require.NoError(t, err)
	assert.Nil(t, rel)

	edges, err := m.Query(ctx, a, DirectionBoth, "")
	require.NoError(t, err)
	assert.Empty(t, edges)

	related, err := m.Traverse(ctx, a, 2, 0.3)
	require.NoError(t, err)
	assert.Empty(t, related)
}
