// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
)

// TypeHealth summarizes the memories of one type
type TypeHealth struct {
	Type            string  `json:"type"`
	TotalMemories   int64   `json:"total_memories"`
	AvgImportance   float64 `json:"avg_importance"`
	AvgAccessCount  float64 `json:"avg_access_count"`
	AccessedLastDay int64   `json:"accessed_last_day"`
	AvgRelevance    float64 `json:"avg_relevance"`
}

type healthRow struct {
	Type         string
	Importance   float64
	DecayRate    float64
	AccessCount  int64
	LastAccessed *time.Time
	CreatedAt    time.Time
}

// Health aggregates per-type statistics over all memories. Relevance is
// averaged from values computed now, so the result is never stored.
func (s *Store) Health(ctx context.Context) ([]TypeHealth, error) {
	var rows []healthRow
	err := s.db.WithContext(ctx).
		Model(&database.Memory{}).
		Select("type", "importance", "decay_rate", "access_count", "last_accessed", "created_at").
		Find(&rows).Error
	if err != nil {
		return nil, memerr.FromDB("memory.Health", err)
	}

	now := s.now()
	dayAgo := now.Add(-24 * time.Hour)

	type acc struct {
		TypeHealth
		importance, accesses, relevance float64
	}
	byType := make(map[string]*acc)
	for _, r := range rows {
		a, ok := byType[r.Type]
		if !ok {
			a = &acc{TypeHealth: TypeHealth{Type: r.Type}}
			byType[r.Type] = a
		}
		a.TotalMemories++
		a.importance += r.Importance
		a.accesses += float64(r.AccessCount)
		a.relevance += Relevance(r.Importance, r.DecayRate, r.CreatedAt, now)
		if r.LastAccessed != nil && r.LastAccessed.After(dayAgo) {
			a.AccessedLastDay++
		}
	}

	out := make([]TypeHealth, 0, len(byType))
	for _, a := range byType {
		n := float64(a.TotalMemories)
		a.AvgImportance = a.importance / n
		a.AvgAccessCount = a.accesses / n
		a.AvgRelevance = a.relevance / n
		out = append(out, a.TypeHealth)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Type < out[j].Type
	})
	return out, nil
}
