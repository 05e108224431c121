// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cluster

import (
	"context"
	"errors"
	"fmt"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/embeddings"
	"github.com/cognitivecomputations/agi-mcp-server/internal/lexical"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignToClusters scores a memory against every cluster and records a
// membership edge for each match. Clusters with a centroid are scored by
// cosine similarity; clusters whose centroid is still zero are scored by
// keyword affinity against the memory's content. Centroids are left
// untouched.
func (e *Engine) AssignToClusters(ctx context.Context, memoryID string) ([]database.ClusterMember, error) {
	const op = "cluster.AssignToClusters"

	if _, err := uuid.Parse(memoryID); err != nil {
		return nil, memerr.NotFound(op, "memory", memoryID)
	}

	db := e.db.WithContext(ctx)
	var mem database.Memory
	if err := db.Where("id = ?", memoryID).First(&mem).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, memerr.NotFound(op, "memory", memoryID)
		}
		return nil, memerr.FromDB(op, err)
	}

	var clusters []database.MemoryCluster
	if err := db.Select("id", "centroid_embedding", "keywords").Find(&clusters).Error; err != nil {
		return nil, memerr.FromDB(op, fmt.Errorf("failed to load clusters: %w", err))
	}

	now := e.now()
	matches := []database.ClusterMember{}
	for _, c := range clusters {
		affinity, ok := e.affinity(c, mem)
		if !ok {
			continue
		}
		matches = append(matches, database.ClusterMember{
			ClusterID:          c.ID,
			MemoryID:           mem.ID,
			MembershipStrength: affinity,
			AddedAt:            now,
		})
	}
	if len(matches) == 0 {
		return matches, nil
	}

	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&matches).Error
	if err != nil {
		return nil, memerr.FromDB(op, fmt.Errorf("failed to add memberships: %w", err))
	}

	e.logger.Debug("memory assigned to clusters",
		zap.String("memory_id", mem.ID),
		zap.Int("clusters", len(matches)))
	return matches, nil
}

// affinity scores mem against c and reports whether it clears the
// threshold for the scoring method used.
func (e *Engine) affinity(c database.MemoryCluster, mem database.Memory) (float64, bool) {
	if !c.CentroidEmbedding.IsZero() {
		sim := embeddings.CosineSimilarity(c.CentroidEmbedding, mem.Embedding)
		return sim, sim >= e.cfg.AffinityThreshold
	}
	if len(c.Keywords) == 0 {
		return 0, false
	}
	score := lexical.KeywordAffinity(c.Keywords, mem.Content)
	return score, score >= e.cfg.KeywordThreshold
}

// RecalculateCentroid recomputes the membership-weighted centroid of the
// cluster's active members, refreshing each member's contribution, the
// cluster's coherence and its importance. A cluster without active
// members gets a zero centroid again.
func (e *Engine) RecalculateCentroid(ctx context.Context, clusterID string) (*database.MemoryCluster, error) {
	const op = "cluster.RecalculateCentroid"

	if _, err := e.get(ctx, op, clusterID); err != nil {
		return nil, err
	}

	var updated database.MemoryCluster
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var edges []database.ClusterMember
		if err := tx.Where("cluster_id = ?", clusterID).Find(&edges).Error; err != nil {
			return fmt.Errorf("failed to load members: %w", err)
		}
		ids := make([]string, 0, len(edges))
		strength := make(map[string]float64, len(edges))
		for _, m := range edges {
			ids = append(ids, m.MemoryID)
			strength[m.MemoryID] = m.MembershipStrength
		}

		var mems []database.Memory
		if len(ids) > 0 {
			err := tx.Select("id", "embedding", "importance").
				Where("id IN ? AND status = ?", ids, database.StatusActive).
				Find(&mems).Error
			if err != nil {
				return fmt.Errorf("failed to load member memories: %w", err)
			}
		}

		vectors := make([][]float32, 0, len(mems))
		weights := make([]float64, 0, len(mems))
		contributed := make(map[string]bool, len(mems))
		var total, weightedImportance float64
		for _, mem := range mems {
			if len(mem.Embedding) != e.cfg.Dimensions {
				continue
			}
			w := strength[mem.ID]
			vectors = append(vectors, mem.Embedding)
			weights = append(weights, w)
			contributed[mem.ID] = true
			total += w
			weightedImportance += w * mem.Importance
		}

		centroid := embeddings.WeightedMean(vectors, weights, e.cfg.Dimensions)
		updates := map[string]interface{}{
			"centroid_embedding": centroid,
			"importance_score":   0.0,
			"coherence_score":    nil,
			"updated_at":         e.now(),
		}
		if total > 0 {
			var coherence float64
			for _, v := range vectors {
				coherence += embeddings.CosineSimilarity(v, centroid)
			}
			coherence /= float64(len(vectors))
			updates["importance_score"] = weightedImportance / total
			updates["coherence_score"] = coherence
		}

		if err := tx.Model(&database.MemoryCluster{}).Where("id = ?", clusterID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update centroid: %w", err)
		}

		for _, m := range edges {
			var contribution interface{}
			if total > 0 && contributed[m.MemoryID] {
				contribution = m.MembershipStrength / total
			}
			err := tx.Model(&database.ClusterMember{}).
				Where("cluster_id = ? AND memory_id = ?", clusterID, m.MemoryID).
				Update("contribution_to_centroid", contribution).Error
			if err != nil {
				return fmt.Errorf("failed to update contribution: %w", err)
			}
		}

		return tx.Where("id = ?", clusterID).First(&updated).Error
	})
	if err != nil {
		return nil, memerr.FromDB(op, err)
	}

	e.logger.Info("cluster centroid recalculated", zap.String("id", clusterID))
	return &updated, nil
}
