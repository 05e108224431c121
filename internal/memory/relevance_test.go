// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevance_EqualsImportanceAtAgeZero(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 0.7, Relevance(0.7, 0.01, now, now))
	assert.Equal(t, 0.7, Relevance(0.7, 0.01, now.Add(time.Hour), now), "future timestamps count as age zero")
}

func TestRelevance_NonIncreasing(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := math.Inf(1)
	for days := 0; days <= 2000; days += 50 {
		r := Relevance(0.9, 0.01, created, created.Add(time.Duration(days)*24*time.Hour))
		assert.LessOrEqual(t, r, prev)
		prev = r
	}
}

func TestRelevance_Values(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		importance float64
		decay      float64
		age        time.Duration
		want       float64
	}{
		{"one hundred days", 1.0, 0.01, 100 * 24 * time.Hour, math.Exp(-1)},
		{"half day", 0.5, 0.1, 12 * time.Hour, 0.5 * math.Exp(-0.05)},
		{"no decay", 0.4, 0, 1000 * 24 * time.Hour, 0.4},
		{"zero importance", 0, 0.01, 24 * time.Hour, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Relevance(tt.importance, tt.decay, created, created.Add(tt.age)), 1e-12)
		})
	}
}

func TestHealth(t *testing.T) {
	store, db := setupTestStore(t)
	ctx := context.Background()
	emb := []float32{1, 0, 0, 0}

	a, err := store.Create(ctx, CreateParams{Type: database.MemoryTypeSemantic, Content: "a", Embedding: emb, Importance: 0.2})
	require.NoError(t, err)
	_, err = store.Create(ctx, CreateParams{Type: database.MemoryTypeSemantic, Content: "b", Embedding: emb, Importance: 0.6})
	require.NoError(t, err)
	_, err = store.Create(ctx, CreateParams{Type: database.MemoryTypeEpisodic, Content: "c", Embedding: emb, Importance: 1.0})
	require.NoError(t, err)

	_, err = store.Access(ctx, a.ID)
	require.NoError(t, err)
	_, err = store.Access(ctx, a.ID)
	require.NoError(t, err)

	stale := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&database.Memory{}).Where("type = ?", database.MemoryTypeEpisodic).
		Update("last_accessed", stale).Error)

	health, err := store.Health(ctx)
	require.NoError(t, err)
	require.Len(t, health, 2)

	episodic, semantic := health[0], health[1]
	assert.Equal(t, database.MemoryTypeEpisodic, episodic.Type)
	assert.Equal(t, int64(1), episodic.TotalMemories)
	assert.Equal(t, int64(0), episodic.AccessedLastDay)

	assert.Equal(t, database.MemoryTypeSemantic, semantic.Type)
	assert.Equal(t, int64(2), semantic.TotalMemories)
	assert.InDelta(t, 0.4, semantic.AvgImportance, 1e-9)
	assert.InDelta(t, 1.0, semantic.AvgAccessCount, 1e-9)
	assert.Equal(t, int64(1), semantic.AccessedLastDay)
	assert.InDelta(t, 0.4, semantic.AvgRelevance, 1e-3)
}
