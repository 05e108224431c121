// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package lifecycle

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/history"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testDims = 2

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

type fixture struct {
	db      *gorm.DB
	store   *memory.Store
	manager *Manager
}

func setupFixture(t *testing.T, f database.Features) *fixture {
	db := setupTestDB(t, f)
	caps := database.DetectCapabilities(db)
	store := memory.NewStore(db, zap.NewNop(), memory.Config{Dimensions: testDims})
	hist := history.NewLog(db, zap.NewNop(), caps)
	return &fixture{
		db:      db,
		store:   store,
		manager: NewManager(db, zap.NewNop(), caps, store, hist),
	}
}

func (f *fixture) memory(t *testing.T, importance float64) string {
	t.Helper()
	mem, err := f.store.Create(context.Background(), memory.CreateParams{
		Type:       database.MemoryTypeEpisodic,
		Content:    "something happened",
		Embedding:  []float32{1, 0},
		Importance: importance,
	})
	require.NoError(t, err)
	return mem.ID
}

func (f *fixture) age(t *testing.T, id string, days int) {
	t.Helper()
	require.NoError(t, f.db.Model(&database.Memory{}).Where("id = ?", id).
		Update("created_at", time.Now().UTC().AddDate(0, 0, -days)).Error)
}

func (f *fixture) status(t *testing.T, id string) string {
	t.Helper()
	var mem database.Memory
	require.NoError(t, f.db.Select("status").Where("id = ?", id).First(&mem).Error)
	return mem.Status
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestConsolidate(t *testing.T) {
	f := setupFixture(t, database.AllFeatures())
	ctx := context.Background()

	a := f.memory(t, 0.4)
	b := f.memory(t, 0.6)

	out, err := f.manager.Consolidate(ctx, []string{a, b, a}, "a and b together", []float32{0.5, 0.5})
	require.NoError(t, err)
	require.NotNil(t, out.Memory)
	assert.Equal(t, []string{a, b}, out.SourceMemoryIDs)
	assert.Equal(t, database.MemoryTypeSemantic, out.Memory.Type)
	assert.Equal(t, ConsolidatedImportance, out.Memory.Importance)
	assert.Equal(t, database.StatusActive, out.Memory.Status)

	assert.Equal(t, database.StatusConsolidated, f.status(t, a))
	assert.Equal(t, database.StatusConsolidated, f.status(t, b))

	var edges []database.MemoryRelationship
	require.NoError(t, f.db.Where("to_memory_id = ?", out.Memory.ID).Find(&edges).Error)
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.Equal(t, database.RelationshipConsolidation, e.RelationshipType)
		assert.Equal(t, 1.0, e.Strength)
	}

	var change database.MemoryChange
	require.NoError(t, f.db.Where("memory_id = ? AND change_type = ?", out.Memory.ID, database.ChangeConsolidation).First(&change).Error)
	var payload map[string][]string
	require.NoError(t, json.Unmarshal(change.NewValue, &payload))
	assert.Equal(t, []string{a, b}, payload["source_memories"])

	var statusChanges int64
	require.NoError(t, f.db.Model(&database.MemoryChange{}).Where("change_type = ?", database.ChangeStatus).Count(&statusChanges).Error)
	assert.Equal(t, int64(2), statusChanges)
}

func TestConsolidate_AllOrNothing(t *testing.T) {
	tests := []struct {
		name      string
		sources   func(a string) []string
		content   string
		embedding []float32
		wantErr   error
	}{
		{"missing source", func(a string) []string { return []string{a, uuid.NewString()} }, "merged", []float32{1, 0}, memerr.ErrNotFound},
		{"malformed source", func(a string) []string { return []string{a, "bogus"} }, "merged", []float32{1, 0}, memerr.ErrNotFound},
		{"bad embedding", func(a string) []string { return []string{a} }, "merged", []float32{1}, memerr.ErrValidation},
		{"empty content", func(a string) []string { return []string{a} }, "", []float32{1, 0}, memerr.ErrValidation},
		{"no sources", func(string) []string { return nil }, "merged", []float32{1, 0}, memerr.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupFixture(t, database.AllFeatures())
			a := f.memory(t, 0.5)

			_, err := f.manager.Consolidate(context.Background(), tt.sources(a), tt.content, tt.embedding)
			require.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, int64(1), f.count(t, &database.Memory{}))
			assert.Equal(t, int64(0), f.count(t, &database.MemoryRelationship{}))
			assert.Equal(t, int64(0), f.count(t, &database.MemoryChange{}))
			assert.Equal(t, database.StatusActive, f.status(t, a))
		})
	}
}

func TestConsolidate_RollsBackOnLateFailure(t *testing.T) {
	f := setupFixture(t, database.AllFeatures())
	a := f.memory(t, 0.5)

	// The change log fails after the memory, edge and status update were written.
	require.NoError(t, f.db.Migrator().DropTable(&database.MemoryChange{}))

	_, err := f.manager.Consolidate(context.Background(), []string{a}, "merged", []float32{1, 0})
	require.Error(t, err)

	assert.Equal(t, int64(1), f.count(t, &database.Memory{}))
	assert.Equal(t, int64(0), f.count(t, &database.MemoryRelationship{}))
	assert.Equal(t, int64(0), f.count(t, &database.SemanticMemory{}))
	assert.Equal(t, database.StatusActive, f.status(t, a))
}

func TestConsolidate_WithoutGraph(t *testing.T) {
	f := setupFixture(t, database.Features{History: true})
	a := f.memory(t, 0.5)

	_, err := f.manager.Consolidate(context.Background(), []string{a}, "merged", []float32{1, 0})
	assert.ErrorIs(t, err, memerr.ErrUnavailable)
	assert.Equal(t, database.StatusActive, f.status(t, a))
}

func TestArchive_FreshMemoryWithPermissiveCriteria(t *testing.T) {
	f := setupFixture(t, database.AllFeatures())
	id := f.memory(t, 0.5)

	report, err := f.manager.Archive(context.Background(), ArchiveCriteria{MinAgeDays: 0, MaxImportance: 1.0})
	require.NoError(t, err)
	assert.Equal(t, []string{id}, report.Transitioned)
	assert.Empty(t, report.Failures)
	assert.Equal(t, database.StatusArchived, f.status(t, id))

	var changes []database.MemoryChange
	require.NoError(t, f.db.Where("memory_id = ?", id).Find(&changes).Error)
	require.Len(t, changes, 1)
	assert.Equal(t, database.ChangeArchival, changes[0].ChangeType)
	assert.JSONEq(t, `{"status":"active"}`, string(changes[0].OldValue))
}

func TestArchive_Criteria(t *testing.T) {
	f := setupFixture(t, database.AllFeatures())
	ctx := context.Background()

	old := f.memory(t, 0.1)
	f.age(t, old, 400)

	young := f.memory(t, 0.1)
	f.age(t, young, 10)

	important := f.memory(t, 0.9)
	f.age(t, important, 400)

	popular := f.memory(t, 0.1)
	f.age(t, popular, 400)
	require.NoError(t, f.db.Model(&database.Memory{}).Where("id = ?", popular).Update("access_count", 5).Error)

	invalidated := f.memory(t, 0.1)
	f.age(t, invalidated, 400)
	require.NoError(t, f.db.Model(&database.Memory{}).Where("id = ?", invalidated).Update("status", database.StatusInvalidated).Error)

	report, err := f.manager.Archive(ctx, DefaultArchiveCriteria())
	require.NoError(t, err)
	assert.Equal(t, []string{old}, report.Transitioned)

	assert.Equal(t, database.StatusArchived, f.status(t, old))
	assert.Equal(t, database.StatusActive, f.status(t, young))
	assert.Equal(t, database.StatusActive, f.status(t, important))
	assert.Equal(t, database.StatusActive, f.status(t, popular))
	assert.Equal(t, database.StatusInvalidated, f.status(t, invalidated))

	again, err := f.manager.Archive(ctx, DefaultArchiveCriteria())
	require.NoError(t, err)
	assert.Empty(t, again.Transitioned)
}

func TestArchive_Validation(t *testing.T) {
	f := setupFixture(t, database.AllFeatures())

	tests := []struct {
		name     string
		criteria ArchiveCriteria
	}{
		{"negative age", ArchiveCriteria{MinAgeDays: -1, MaxImportance: 0.3}},
		{"importance above one", ArchiveCriteria{MinAgeDays: 1, MaxImportance: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.manager.Archive(context.Background(), tt.criteria)
			assert.ErrorIs(t, err, memerr.ErrValidation)
		})
	}
}

func TestPrune(t *testing.T) {
	f := setupFixture(t, database.AllFeatures())
	ctx := context.Background()

	stale := f.memory(t, 0.05)
	f.age(t, stale, 1200)
	readOften := f.memory(t, 0.05)
	f.age(t, readOften, 1200)
	activeOld := f.memory(t, 0.05)
	f.age(t, activeOld, 1200)

	require.NoError(t, f.db.Model(&database.Memory{}).Where("id IN ?", []string{stale, readOften}).
		Update("status", database.StatusArchived).Error)
	require.NoError(t, f.db.Model(&database.Memory{}).Where("id = ?", readOften).Update("access_count", 3).Error)

	report, err := f.manager.Prune(ctx, DefaultPruneCriteria())
	require.NoError(t, err)
	assert.Equal(t, []string{stale}, report.Transitioned)
	assert.Equal(t, database.StatusDeleted, f.status(t, stale))
	assert.Equal(t, database.StatusArchived, f.status(t, readOften))
	assert.Equal(t, database.StatusActive, f.status(t, activeOld))

	var change database.MemoryChange
	require.NoError(t, f.db.Where("memory_id = ?", stale).First(&change).Error)
	assert.Equal(t, database.ChangeDeletion, change.ChangeType)

	activeCriteria := DefaultPruneCriteria()
	activeCriteria.Status = database.StatusActive
	report, err = f.manager.Prune(ctx, activeCriteria)
	require.NoError(t, err)
	assert.Equal(t, []string{activeOld}, report.Transitioned)

	_, err = f.manager.Prune(ctx, PruneCriteria{Status: database.StatusDeleted})
	assert.ErrorIs(t, err, memerr.ErrValidation)
	_, err = f.manager.Prune(ctx, PruneCriteria{Status: "forgotten"})
	assert.ErrorIs(t, err, memerr.ErrValidation)
}

func TestTransition_SkipsRowsThatNoLongerMatch(t *testing.T) {
	f := setupFixture(t, database.AllFeatures())
	id := f.memory(t, 0.5)

	// Accessed between candidate selection and the update.
	require.NoError(t, f.db.Model(&database.Memory{}).Where("id = ?", id).Update("access_count", 10).Error)

	cutoff := time.Now().UTC()
	moved, err := f.manager.transitionOne(f.db, transition{
		op:         "test",
		from:       database.StatusActive,
		to:         database.StatusArchived,
		changeType: database.ChangeArchival,
		criteria: func(db *gorm.DB) *gorm.DB {
			return db.Where("created_at <= ? AND importance < ? AND access_count < ?", cutoff, 1.0, archiveAccessLimit)
		},
	}, id)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, database.StatusActive, f.status(t, id))
	assert.Equal(t, int64(0), f.count(t, &database.MemoryChange{}))
}

func TestArchive_WithoutHistory(t *testing.T) {
	f := setupFixture(t, database.Features{})
	id := f.memory(t, 0.5)

	report, err := f.manager.Archive(context.Background(), ArchiveCriteria{MinAgeDays: 0, MaxImportance: 1.0})
	require.NoError(t, err)
	assert.Equal(t, []string{id}, report.Transitioned)
}
