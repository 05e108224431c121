// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cluster

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"gorm.io/datatypes"
)

const recentMemoryWindow = 7 * 24 * time.Hour

// RelatedCluster is an inter-cluster link seen from one cluster
type RelatedCluster struct {
	ClusterID        string  `json:"cluster_id"`
	Name             string  `json:"name"`
	RelationshipType string  `json:"relationship_type"`
	Strength         float64 `json:"strength"`
	Direction        string  `json:"direction"`
}

// Insights is a read-time aggregate over a cluster's active members
type Insights struct {
	ClusterID             string           `json:"cluster_id"`
	Name                  string           `json:"name"`
	ClusterType           string           `json:"cluster_type"`
	MemberCount           int              `json:"member_count"`
	AvgImportance         float64          `json:"avg_importance"`
	LastMemoryAccess      *time.Time       `json:"last_memory_access,omitempty"`
	RecentMemories        int              `json:"recent_memories"`
	AvgMembershipStrength float64          `json:"avg_membership_strength"`
	MemoryTypes           []string         `json:"memory_types"`
	RelatedClusters       []RelatedCluster `json:"related_clusters"`
}

// Insights computes the cluster's aggregate view. Nothing is stored.
func (e *Engine) Insights(ctx context.Context, clusterID string) (*Insights, error) {
	const op = "cluster.Insights"

	c, err := e.get(ctx, op, clusterID)
	if err != nil {
		return nil, err
	}

	members, err := e.activeMembers(ctx, clusterID)
	if err != nil {
		return nil, memerr.FromDB(op, err)
	}

	out := &Insights{
		ClusterID:       c.ID,
		Name:            c.Name,
		ClusterType:     c.ClusterType,
		MemberCount:     len(members),
		MemoryTypes:     []string{},
		RelatedClusters: []RelatedCluster{},
	}

	now := e.now()
	types := map[string]bool{}
	var importance, strength float64
	for _, m := range members {
		importance += m.Importance
		strength += m.MembershipStrength
		if now.Sub(m.CreatedAt) <= recentMemoryWindow {
			out.RecentMemories++
		}
		if m.LastAccessed != nil && (out.LastMemoryAccess == nil || m.LastAccessed.After(*out.LastMemoryAccess)) {
			t := *m.LastAccessed
			out.LastMemoryAccess = &t
		}
		if !types[m.Type] {
			types[m.Type] = true
			out.MemoryTypes = append(out.MemoryTypes, m.Type)
		}
	}
	if n := float64(len(members)); n > 0 {
		out.AvgImportance = importance / n
		out.AvgMembershipStrength = strength / n
	}
	sort.Strings(out.MemoryTypes)

	if e.caps.ClusterAnalytics() {
		related, err := e.relatedClusters(ctx, clusterID)
		if err != nil {
			return nil, memerr.FromDB(op, err)
		}
		out.RelatedClusters = related
	}
	return out, nil
}

func (e *Engine) relatedClusters(ctx context.Context, clusterID string) ([]RelatedCluster, error) {
	db := e.db.WithContext(ctx)

	var links []database.ClusterRelationship
	err := db.Where("from_cluster_id = ? OR to_cluster_id = ?", clusterID, clusterID).
		Order("strength DESC").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster relationships: %w", err)
	}

	related := make([]RelatedCluster, 0, len(links))
	if len(links) == 0 {
		return related, nil
	}

	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.FromClusterID, l.ToClusterID)
	}
	var clusters []database.MemoryCluster
	if err := db.Select("id", "name").Where("id IN ?", ids).Find(&clusters).Error; err != nil {
		return nil, fmt.Errorf("failed to load related clusters: %w", err)
	}
	names := make(map[string]string, len(clusters))
	for _, c := range clusters {
		names[c.ID] = c.Name
	}

	for _, l := range links {
		r := RelatedCluster{RelationshipType: l.RelationshipType, Strength: l.Strength}
		if l.FromClusterID == clusterID {
			r.ClusterID, r.Direction = l.ToClusterID, "outgoing"
		} else {
			r.ClusterID, r.Direction = l.FromClusterID, "incoming"
		}
		r.Name = names[r.ClusterID]
		related = append(related, r)
	}
	return related, nil
}

// Theme is a cluster activated within the lookback window
type Theme struct {
	ClusterID          string         `json:"cluster_id"`
	Name               string         `json:"name"`
	EmotionalSignature datatypes.JSON `json:"emotional_signature,omitempty"`
	Keywords           []string       `json:"keywords"`
	RecentActivations  int            `json:"recent_activations"`
	AssociatedClusters []string       `json:"associated_clusters"`
}

// ActiveThemes lists clusters activated in the last days, most
// activated first, with the clusters they were co-activated with.
func (e *Engine) ActiveThemes(ctx context.Context, days int) ([]Theme, error) {
	const op = "cluster.ActiveThemes"

	if days <= 0 {
		days = DefaultThemeDays
	}
	since := e.now().AddDate(0, 0, -days)
	db := e.db.WithContext(ctx)

	var activations []database.ClusterActivation
	err := db.Where("activated_at >= ?", since).Order("activated_at DESC").Find(&activations).Error
	if err != nil {
		return nil, memerr.FromDB(op, fmt.Errorf("failed to load activations: %w", err))
	}

	themes := []Theme{}
	if len(activations) == 0 {
		return themes, nil
	}

	counts := map[string]int{}
	associated := map[string][]string{}
	seen := map[string]map[string]bool{}
	var order []string
	for _, a := range activations {
		if counts[a.ClusterID] == 0 {
			order = append(order, a.ClusterID)
			seen[a.ClusterID] = map[string]bool{}
		}
		counts[a.ClusterID]++
		for _, id := range a.CoActivatedClusters {
			if id == a.ClusterID || seen[a.ClusterID][id] {
				continue
			}
			seen[a.ClusterID][id] = true
			associated[a.ClusterID] = append(associated[a.ClusterID], id)
		}
	}

	var clusters []database.MemoryCluster
	err = db.Select("id", "name", "emotional_signature", "keywords").
		Where("id IN ?", order).
		Find(&clusters).Error
	if err != nil {
		return nil, memerr.FromDB(op, fmt.Errorf("failed to load clusters: %w", err))
	}
	byID := make(map[string]database.MemoryCluster, len(clusters))
	for _, c := range clusters {
		byID[c.ID] = c
	}

	for _, id := range order {
		c, ok := byID[id]
		if !ok {
			continue
		}
		keywords := []string(c.Keywords)
		if keywords == nil {
			keywords = []string{}
		}
		assoc := associated[id]
		if assoc == nil {
			assoc = []string{}
		}
		themes = append(themes, Theme{
			ClusterID:          id,
			Name:               c.Name,
			EmotionalSignature: c.EmotionalSignature,
			Keywords:           keywords,
			RecentActivations:  counts[id],
			AssociatedClusters: assoc,
		})
	}

	sort.SliceStable(themes, func(i, j int) bool {
		return themes[i].RecentActivations > themes[j].RecentActivations
	})
	return themes, nil
}
