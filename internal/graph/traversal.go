// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package graph

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"github.com/google/uuid"
)

// Traversal defaults
const (
	DefaultMaxDepth    = 2
	DefaultMinStrength = 0.3
	MaxDepthLimit      = 5
)

// Related is a memory reached from the seed along outgoing edges
type Related struct {
	MemoryID         string   `json:"memory_id"`
	Content          string   `json:"content"`
	Type             string   `json:"type"`
	Importance       float64  `json:"importance"`
	RelationshipType string   `json:"relationship_type"`
	Strength         float64  `json:"strength"`
	Depth            int      `json:"depth"`
	Path             []string `json:"path"`
}

// path is one frontier entry of the breadth-first expansion
type path struct {
	nodes    []string
	strength float64
	relType  string
}

func (p path) tail() string {
	return p.nodes[len(p.nodes)-1]
}

// Traverse expands breadth-first from seedID along outgoing edges. The
// accumulated strength of a path is the product of its edge strengths;
// an edge is followed only while the path is shorter than maxDepth and
// the product stays at or above minStrength. A memory already on a path
// is not revisited by that path, though other paths may reach it. Each
// surviving path yields one result, restricted to active memories.
// maxDepth must be within [1, MaxDepthLimit].
func (m *Manager) Traverse(ctx context.Context, seedID string, maxDepth int, minStrength float64) ([]Related, error) {
	const op = "graph.Traverse"

	results := []Related{}
	if maxDepth < 1 || maxDepth > MaxDepthLimit {
		return nil, memerr.Validation(op, "max depth must be between 1 and %d, got %d", MaxDepthLimit, maxDepth)
	}
	if minStrength < 0 || minStrength > 1 {
		return nil, memerr.Validation(op, "min strength must be between 0 and 1, got %v", minStrength)
	}
	if !m.caps.Relationships() {
		return results, nil
	}
	if _, err := uuid.Parse(seedID); err != nil {
		return results, nil
	}

	db := m.db.WithContext(ctx)
	frontier := []path{{nodes: []string{seedID}, strength: 1}}
	var found []path

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		tails := make([]string, 0, len(frontier))
		seen := make(map[string]bool, len(frontier))
		for _, p := range frontier {
			if !seen[p.tail()] {
				seen[p.tail()] = true
				tails = append(tails, p.tail())
			}
		}

		var edges []database.MemoryRelationship
		err := db.Where("from_memory_id IN ?", tails).
			Order("strength DESC").
			Find(&edges).Error
		if err != nil {
			return nil, memerr.FromDB(op, fmt.Errorf("failed to expand depth %d: %w", depth, err))
		}

		outgoing := make(map[string][]database.MemoryRelationship, len(tails))
		for _, e := range edges {
			outgoing[e.FromMemoryID] = append(outgoing[e.FromMemoryID], e)
		}

		var next []path
		for _, p := range frontier {
			for _, e := range outgoing[p.tail()] {
				if slices.Contains(p.nodes, e.ToMemoryID) {
					continue
				}
				strength := p.strength * e.Strength
				if strength < minStrength {
					continue
				}
				nodes := make([]string, len(p.nodes)+1)
				copy(nodes, p.nodes)
				nodes[len(p.nodes)] = e.ToMemoryID
				next = append(next, path{nodes: nodes, strength: strength, relType: e.RelationshipType})
			}
		}
		found = append(found, next...)
		frontier = next
	}

	if len(found) == 0 {
		return results, nil
	}

	ids := make([]string, 0, len(found))
	for _, p := range found {
		ids = append(ids, p.tail())
	}
	var mems []database.Memory
	err := db.Select("id", "content", "type", "importance").
		Where("id IN ? AND status = ?", ids, database.StatusActive).
		Find(&mems).Error
	if err != nil {
		return nil, memerr.FromDB(op, fmt.Errorf("failed to load related memories: %w", err))
	}
	active := make(map[string]database.Memory, len(mems))
	for _, mem := range mems {
		active[mem.ID] = mem
	}

	for _, p := range found {
		mem, ok := active[p.tail()]
		if !ok {
			continue
		}
		results = append(results, Related{
			MemoryID:         mem.ID,
			Content:          mem.Content,
			Type:             mem.Type,
			Importance:       mem.Importance,
			RelationshipType: p.relType,
			Strength:         p.strength,
			Depth:            len(p.nodes) - 1,
			Path:             p.nodes,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Strength != results[j].Strength {
			return results[i].Strength > results[j].Strength
		}
		return results[i].Depth < results[j].Depth
	})
	return results, nil
}
