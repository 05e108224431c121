// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"testing"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMetadata_Variants(t *testing.T) {
	tests := []struct {
		memType string
		raw     map[string]any
		want    string
	}{
		{database.MemoryTypeEpisodic, nil, database.MemoryTypeEpisodic},
		{database.MemoryTypeSemantic, map[string]any{"confidence": 0.5}, database.MemoryTypeSemantic},
		{database.MemoryTypeProcedural, map[string]any{"steps": []any{"a"}}, database.MemoryTypeProcedural},
		{database.MemoryTypeStrategic, map[string]any{"pattern_description": "p"}, database.MemoryTypeStrategic},
	}

	for _, tt := range tests {
		t.Run(tt.memType, func(t *testing.T) {
			meta, err := DecodeMetadata(tt.memType, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, meta.MemoryType())
		})
	}
}

func TestDecodeMetadata_RejectsUnknownType(t *testing.T) {
	_, err := DecodeMetadata("dream", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown memory type")
}

func TestDecodeMetadata_Fields(t *testing.T) {
	meta, err := DecodeMetadata(database.MemoryTypeEpisodic, map[string]any{
		"emotional_valence":   -0.5,
		"verification_status": true,
		"event_time":          "2024-05-01T10:00:00Z",
		"context":             map[string]any{"where": "office"},
		"unrelated_key":       "ignored",
	})
	require.NoError(t, err)

	ep, ok := meta.(*EpisodicMetadata)
	require.True(t, ok)
	assert.Equal(t, -0.5, ep.EmotionalValence)
	require.NotNil(t, ep.VerificationStatus)
	assert.True(t, *ep.VerificationStatus)
	require.NotNil(t, ep.EventTime)
	assert.True(t, ep.EventTime.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, map[string]any{"where": "office"}, ep.Context)

	meta, err = DecodeMetadata(database.MemoryTypeSemantic, map[string]any{
		"category":         []any{"science", "physics"},
		"related_concepts": []string{"energy"},
	})
	require.NoError(t, err)
	sem := meta.(*SemanticMetadata)
	assert.Equal(t, []string{"science", "physics"}, sem.Category)
	assert.Equal(t, []string{"energy"}, sem.RelatedConcepts)
	assert.Nil(t, sem.Confidence)
}

func TestExtensionRow_StrategicDefaultsToContent(t *testing.T) {
	meta, err := DecodeMetadata(database.MemoryTypeStrategic, nil)
	require.NoError(t, err)

	row, err := extensionRow(meta, "id-1", "prefer small batches", time.Now())
	require.NoError(t, err)

	strat, ok := row.(*database.StrategicMemory)
	require.True(t, ok)
	assert.Equal(t, "id-1", strat.MemoryID)
	assert.Equal(t, "prefer small batches", strat.PatternDescription)
	assert.Equal(t, DefaultStrategicConfidence, strat.ConfidenceScore)
	assert.Nil(t, strat.SupportingEvidence)
}
