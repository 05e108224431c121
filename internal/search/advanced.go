// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/embeddings"
	"github.com/cognitivecomputations/agi-mcp-server/internal/lexical"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
)

// DateRange bounds created_at. Nil ends are open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Criteria combines the predicates of an advanced search. All predicates
// are ANDed with status = active.
type Criteria struct {
	TextQuery string
	Embedding []float32
	// SimilarityThreshold filters by cosine similarity when Embedding is
	// set. Nil keeps every row and only ranks by similarity.
	SimilarityThreshold *float64
	Types               []string
	// ImportanceRange is [min, max]; empty means [0, 1].
	ImportanceRange []float64
	DateRange       DateRange
	Limit           int
}

// Advanced filters by every predicate in c. With both a text query and an
// embedding, results are ordered by text score, similarity, importance;
// with one of them by that metric then importance; with neither by
// importance alone.
func (e *Engine) Advanced(ctx context.Context, c Criteria) ([]Result, error) {
	const op = "search.Advanced"

	minImp, maxImp := 0.0, 1.0
	switch len(c.ImportanceRange) {
	case 0:
	case 2:
		minImp, maxImp = c.ImportanceRange[0], c.ImportanceRange[1]
		if minImp > maxImp {
			return nil, memerr.Validation(op, "importance range min %v exceeds max %v", minImp, maxImp)
		}
	default:
		return nil, memerr.Validation(op, "importance range must have exactly two values")
	}
	for _, t := range c.Types {
		if !database.IsValidMemoryType(t) {
			return nil, memerr.Validation(op, "unknown memory type %q, must be one of %s",
				t, strings.Join(database.ValidMemoryTypes(), ", "))
		}
	}

	useVector := len(c.Embedding) > 0
	if useVector {
		if err := embeddings.CheckDimensions(c.Embedding, e.dimensions); err != nil {
			return nil, memerr.Validation(op, "%v", err)
		}
	}

	q := lexical.ParseQuery(c.TextQuery)
	useText := !q.Empty()

	db := e.active(ctx).Where("importance BETWEEN ? AND ?", minImp, maxImp)
	if len(c.Types) > 0 {
		db = db.Where("type IN ?", c.Types)
	}
	if c.DateRange.Start != nil {
		db = db.Where("created_at >= ?", c.DateRange.Start.UTC())
	}
	if c.DateRange.End != nil {
		db = db.Where("created_at <= ?", c.DateRange.End.UTC())
	}
	if !useVector {
		db = db.Omit("embedding")
	}

	results := []Result{}
	now := e.now()
	err := e.scan(ctx, db, func(mem database.Memory) {
		var sim, score *float64
		if useText {
			doc := lexical.Analyze(mem.Content)
			if !doc.Matches(q) {
				return
			}
			r := doc.Rank(q)
			score = &r
		}
		if useVector {
			s := embeddings.CosineSimilarity(mem.Embedding, c.Embedding)
			if c.SimilarityThreshold != nil && s < *c.SimilarityThreshold {
				return
			}
			sim = &s
		}
		results = append(results, e.result(mem, now, sim, score))
	})
	if err != nil {
		return nil, memerr.FromDB(op, err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if useText && *a.TextScore != *b.TextScore {
			return *a.TextScore > *b.TextScore
		}
		if useVector && *a.Similarity != *b.Similarity {
			return *a.Similarity > *b.Similarity
		}
		return a.Importance > b.Importance
	})
	return truncate(results, c.Limit), nil
}
