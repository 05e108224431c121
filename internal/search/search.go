// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package search ranks active memories by embedding similarity, lexical
// relevance, or a combination of predicates.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/embeddings"
	"github.com/cognitivecomputations/agi-mcp-server/internal/lexical"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memory"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Search defaults
const (
	DefaultLimit               = 10
	DefaultSimilarityThreshold = 0.7
	batchSize                  = 500
)

// Result is a ranked memory. Similarity and TextScore are set only when
// the corresponding predicate took part in the search.
type Result struct {
	database.Memory
	Similarity *float64 `json:"similarity,omitempty"`
	TextScore  *float64 `json:"text_score,omitempty"`
}

// Engine runs searches against the memory table
type Engine struct {
	db         *gorm.DB
	logger     *zap.Logger
	dimensions int
	now        func() time.Time
}

// NewEngine creates a new search engine
func NewEngine(db *gorm.DB, logger *zap.Logger, dimensions int) *Engine {
	if dimensions <= 0 {
		dimensions = embeddings.DefaultDimensions
	}
	return &Engine{
		db:         db,
		logger:     logger,
		dimensions: dimensions,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Similarity returns active memories whose cosine similarity to query is
// at least threshold, ordered by similarity, relevance and recency.
func (e *Engine) Similarity(ctx context.Context, query []float32, limit int, threshold float64) ([]Result, error) {
	const op = "search.Similarity"

	if err := embeddings.CheckDimensions(query, e.dimensions); err != nil {
		return nil, memerr.Validation(op, "%v", err)
	}
	if threshold < -1 || threshold > 1 {
		return nil, memerr.Validation(op, "threshold must be between -1 and 1, got %v", threshold)
	}

	results := []Result{}
	now := e.now()
	err := e.scan(ctx, e.active(ctx), func(mem database.Memory) {
		sim := embeddings.CosineSimilarity(mem.Embedding, query)
		if sim < threshold {
			return
		}
		results = append(results, e.result(mem, now, &sim, nil))
	})
	if err != nil {
		return nil, memerr.FromDB(op, err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if *a.Similarity != *b.Similarity {
			return *a.Similarity > *b.Similarity
		}
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return truncate(results, limit), nil
}

// Text returns active memories containing every query term, ranked by
// term frequency then relevance. An empty query yields no results.
func (e *Engine) Text(ctx context.Context, query string, limit int) ([]Result, error) {
	const op = "search.Text"

	results := []Result{}
	q := lexical.ParseQuery(query)
	if q.Empty() {
		return results, nil
	}

	now := e.now()
	err := e.scan(ctx, e.active(ctx).Omit("embedding"), func(mem database.Memory) {
		doc := lexical.Analyze(mem.Content)
		if !doc.Matches(q) {
			return
		}
		score := doc.Rank(q)
		results = append(results, e.result(mem, now, nil, &score))
	})
	if err != nil {
		return nil, memerr.FromDB(op, err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if *a.TextScore != *b.TextScore {
			return *a.TextScore > *b.TextScore
		}
		return a.RelevanceScore > b.RelevanceScore
	})
	return truncate(results, limit), nil
}

// active selects memories eligible for search
func (e *Engine) active(ctx context.Context) *gorm.DB {
	return e.db.WithContext(ctx).
		Model(&database.Memory{}).
		Where("status = ?", database.StatusActive)
}

// scan streams the rows of q in batches to fn
func (e *Engine) scan(ctx context.Context, q *gorm.DB, fn func(database.Memory)) error {
	var batch []database.Memory
	res := q.FindInBatches(&batch, batchSize, func(tx *gorm.DB, n int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, mem := range batch {
			fn(mem)
		}
		return nil
	})
	if res.Error != nil {
		return fmt.Errorf("failed to scan memories: %w", res.Error)
	}
	return nil
}

func (e *Engine) result(mem database.Memory, now time.Time, similarity, textScore *float64) Result {
	mem.RelevanceScore = memory.Relevance(mem.Importance, mem.DecayRate, mem.CreatedAt, now)
	mem.Embedding = nil
	return Result{Memory: mem, Similarity: similarity, TextScore: textScore}
}

func truncate(results []Result, limit int) []Result {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
