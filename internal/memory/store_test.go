// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testDims = 4

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Connect(&database.Config{
		Type:         "sqlite",
		SQLitePath:   filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		LogLevel:     logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, database.Migrate(db, database.AllFeatures()))
	return db
}

func setupTestStore(t *testing.T) (*Store, *gorm.DB) {
	db := setupTestDB(t)
	return NewStore(db, zap.NewNop(), Config{Dimensions: testDims}), db
}

type recordingIngestor struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingIngestor) Enqueue(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func TestCreateAndGet_Semantic(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	mem, err := store.Create(ctx, CreateParams{
		Type:       database.MemoryTypeSemantic,
		Content:    "X",
		Embedding:  []float32{1, 0, 0, 0},
		Importance: 0.8,
		Metadata:   map[string]any{"confidence": 0.9},
	})
	require.NoError(t, err)
	require.NotEmpty(t, mem.ID)

	got, err := store.Get(ctx, mem.ID)
	require.NoError(t, err)
	assert.Equal(t, database.MemoryTypeSemantic, got.Type)
	assert.Equal(t, 0.8, got.Importance)
	assert.Equal(t, database.StatusActive, got.Status)
	require.NotNil(t, got.Semantic)
	assert.Equal(t, 0.9, got.Semantic.Confidence)
	assert.Equal(t, []string{}, []string(got.Semantic.Category))
	assert.InDelta(t, 0.8, got.RelevanceScore, 1e-3)
	assert.Nil(t, got.Episodic)
}

func TestCreate_TypeDefaults(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	emb := []float32{0, 1, 0, 0}

	t.Run("episodic", func(t *testing.T) {
		mem, err := store.Create(ctx, CreateParams{
			Type: database.MemoryTypeEpisodic, Content: "shipped release", Embedding: emb,
			Metadata: map[string]any{"action_taken": map[string]any{"cmd": "deploy"}},
		})
		require.NoError(t, err)

		got, err := store.Get(ctx, mem.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Episodic)
		assert.Equal(t, 0.0, got.Episodic.EmotionalValence)
		assert.WithinDuration(t, time.Now(), got.Episodic.EventTime, time.Minute)
		assert.JSONEq(t, `{"cmd":"deploy"}`, string(got.Episodic.ActionTaken))
	})

	t.Run("semantic", func(t *testing.T) {
		mem, err := store.Create(ctx, CreateParams{
			Type: database.MemoryTypeSemantic, Content: "go has goroutines", Embedding: emb,
		})
		require.NoError(t, err)
		got, err := store.Get(ctx, mem.ID)
		require.NoError(t, err)
		assert.Equal(t, DefaultSemanticConfidence, got.Semantic.Confidence)
	})

	t.Run("procedural", func(t *testing.T) {
		mem, err := store.Create(ctx, CreateParams{
			Type: database.MemoryTypeProcedural, Content: "rotate keys", Embedding: emb,
			Metadata: map[string]any{
				"success_count":    3.0,
				"total_attempts":   4.0,
				"average_duration": 90.0,
			},
		})
		require.NoError(t, err)
		got, err := store.Get(ctx, mem.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Procedural)
		assert.JSONEq(t, `{}`, string(got.Procedural.Steps))
		assert.InDelta(t, 0.75, got.Procedural.SuccessRate, 1e-9)
		require.NotNil(t, got.Procedural.AverageDuration)
		assert.Equal(t, 90*time.Second, *got.Procedural.AverageDuration)
	})

	t.Run("procedural without attempts", func(t *testing.T) {
		mem, err := store.Create(ctx, CreateParams{
			Type: database.MemoryTypeProcedural, Content: "untried", Embedding: emb,
			Metadata: map[string]any{"average_duration": "1m30s"},
		})
		require.NoError(t, err)
		got, err := store.Get(ctx, mem.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got.Procedural.SuccessRate)
		assert.Equal(t, 90*time.Second, *got.Procedural.AverageDuration)
	})

	t.Run("strategic", func(t *testing.T) {
		mem, err := store.Create(ctx, CreateParams{
			Type: database.MemoryTypeStrategic, Content: "batch small PRs", Embedding: emb,
		})
		require.NoError(t, err)
		got, err := store.Get(ctx, mem.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Strategic)
		assert.Equal(t, "batch small PRs", got.Strategic.PatternDescription)
		assert.Equal(t, DefaultStrategicConfidence, got.Strategic.ConfidenceScore)
	})
}

func TestCreate_Validation(t *testing.T) {
	store, db := setupTestStore(t)
	ctx := context.Background()
	emb := []float32{1, 1, 1, 1}

	tests := []struct {
		name   string
		params CreateParams
	}{
		{"unknown type", CreateParams{Type: "dream", Content: "x", Embedding: emb}},
		{"wrong dimension", CreateParams{Type: database.MemoryTypeSemantic, Content: "x", Embedding: []float32{1, 2}}},
		{"missing embedding", CreateParams{Type: database.MemoryTypeSemantic, Content: "x"}},
		{"empty content", CreateParams{Type: database.MemoryTypeSemantic, Content: "  ", Embedding: emb}},
		{"importance above range", CreateParams{Type: database.MemoryTypeSemantic, Content: "x", Embedding: emb, Importance: 1.5}},
		{"valence out of range", CreateParams{Type: database.MemoryTypeEpisodic, Content: "x", Embedding: emb,
			Metadata: map[string]any{"emotional_valence": -2.0}}},
		{"confidence out of range", CreateParams{Type: database.MemoryTypeSemantic, Content: "x", Embedding: emb,
			Metadata: map[string]any{"confidence": 1.2}}},
		{"successes exceed attempts", CreateParams{Type: database.MemoryTypeProcedural, Content: "x", Embedding: emb,
			Metadata: map[string]any{"success_count": 5.0, "total_attempts": 1.0}}},
		{"malformed field", CreateParams{Type: database.MemoryTypeEpisodic, Content: "x", Embedding: emb,
			Metadata: map[string]any{"emotional_valence": "very"}}},
		{"non-numeric decay", CreateParams{Type: database.MemoryTypeSemantic, Content: "x", Embedding: emb,
			Metadata: map[string]any{"decayRate": "fast"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem, err := store.Create(ctx, tt.params)
			assert.Nil(t, mem)
			assert.ErrorIs(t, err, memerr.ErrValidation)
		})
	}

	var count int64
	db.Model(&database.Memory{}).Count(&count)
	assert.Zero(t, count, "failed creates must not leave rows behind")
}

func TestCreate_DecayRate(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	def, err := store.Create(ctx, CreateParams{Type: database.MemoryTypeSemantic, Content: "a", Embedding: []float32{1, 0, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, DefaultDecayRate, def.DecayRate)

	custom, err := store.Create(ctx, CreateParams{
		Type: database.MemoryTypeSemantic, Content: "b", Embedding: []float32{1, 0, 0, 0},
		Metadata: map[string]any{"decayRate": 0.2},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.2, custom.DecayRate)
}

func TestCreate_NotifiesIngestor(t *testing.T) {
	store, _ := setupTestStore(t)
	rec := &recordingIngestor{}
	store.WithIngestor(rec)

	mem, err := store.Create(context.Background(), CreateParams{
		Type: database.MemoryTypeSemantic, Content: "a", Embedding: []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{mem.ID}, rec.ids)

	_, err = store.Create(context.Background(), CreateParams{Type: "bogus"})
	require.Error(t, err)
	assert.Len(t, rec.ids, 1)
}

func TestGet_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, memerr.ErrNotFound)

	_, err = store.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, memerr.ErrNotFound)

	_, err = store.Access(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, memerr.ErrNotFound)

	_, err = store.Access(ctx, uuid.NewString())
	assert.ErrorIs(t, err, memerr.ErrNotFound)
}

func TestAccess_ConcurrentIncrements(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	mem, err := store.Create(ctx, CreateParams{
		Type: database.MemoryTypeSemantic, Content: "hot memory", Embedding: []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)
	assert.Nil(t, mem.LastAccessed)

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Access(ctx, mem.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := store.Get(ctx, mem.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.AccessCount)
	require.NotNil(t, got.LastAccessed)
	assert.WithinDuration(t, time.Now(), *got.LastAccessed, time.Minute)
}

func TestMemory_JSONShape(t *testing.T) {
	store, _ := setupTestStore(t)

	mem, err := store.Create(context.Background(), CreateParams{
		Type: database.MemoryTypeProcedural, Content: "p", Embedding: []float32{1, 0, 0, 0},
		Metadata: map[string]any{"steps": []any{"a", "b"}},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(mem)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "procedural", decoded["type"])
	assert.Contains(t, decoded, "relevance_score")
	assert.Contains(t, decoded, "procedural")
	assert.NotContains(t, decoded, "semantic")
}
