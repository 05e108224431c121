// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cluster groups memories around centroids and tracks cluster
// activation.
package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/embeddings"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memory"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Engine defaults
const (
	DefaultListLimit          = 20
	DefaultActivateLimit      = 10
	DefaultAffinityThreshold  = 0.7
	DefaultKeywordThreshold   = 0.5
	DefaultSimilarThreshold   = 0.7
	DefaultLinkStrength       = 0.5
	DefaultThemeDays          = 7
	DefaultCoActivationWindow = 5 * time.Minute
)

// Config holds engine settings
type Config struct {
	Dimensions         int
	AffinityThreshold  float64
	KeywordThreshold   float64
	CoActivationWindow time.Duration
}

// Engine owns clusters, their memberships and activation history
type Engine struct {
	db     *gorm.DB
	logger *zap.Logger
	caps   database.Capabilities
	cfg    Config
	now    func() time.Time
}

// NewEngine creates a new cluster engine
func NewEngine(db *gorm.DB, logger *zap.Logger, caps database.Capabilities, cfg Config) *Engine {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = embeddings.DefaultDimensions
	}
	if cfg.AffinityThreshold <= 0 {
		cfg.AffinityThreshold = DefaultAffinityThreshold
	}
	if cfg.KeywordThreshold <= 0 {
		cfg.KeywordThreshold = DefaultKeywordThreshold
	}
	if cfg.CoActivationWindow <= 0 {
		cfg.CoActivationWindow = DefaultCoActivationWindow
	}
	return &Engine{
		db:     db,
		logger: logger,
		caps:   caps,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateParams holds the input for Create
type CreateParams struct {
	Name               string
	Type               string
	Description        string
	Keywords           []string
	EmotionalSignature map[string]any
}

// Create inserts a cluster with a zero centroid and importance 0
func (e *Engine) Create(ctx context.Context, p CreateParams) (*database.MemoryCluster, error) {
	const op = "cluster.Create"

	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, memerr.Validation(op, "name is required")
	}
	if !database.IsValidClusterType(p.Type) {
		return nil, memerr.Validation(op, "unknown cluster type %q, must be one of %s",
			p.Type, strings.Join(database.ValidClusterTypes(), ", "))
	}

	var signature datatypes.JSON
	if p.EmotionalSignature != nil {
		b, err := json.Marshal(p.EmotionalSignature)
		if err != nil {
			return nil, memerr.Validation(op, "invalid emotional signature: %v", err)
		}
		signature = datatypes.JSON(b)
	}

	now := e.now()
	c := &database.MemoryCluster{
		ID:                 uuid.NewString(),
		ClusterType:        p.Type,
		Name:               name,
		Description:        p.Description,
		CentroidEmbedding:  embeddings.Zero(e.cfg.Dimensions),
		EmotionalSignature: signature,
		Keywords:           datatypes.JSONSlice[string](normalizeKeywords(p.Keywords)),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := e.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error; err != nil {
		return nil, memerr.FromDB(op, fmt.Errorf("failed to create cluster: %w", err))
	}

	e.logger.Debug("cluster created", zap.String("id", c.ID), zap.String("name", c.Name))
	return c, nil
}

// Summary is a cluster with its membership listed
type Summary struct {
	database.MemoryCluster
	MemoryCount int      `json:"memory_count"`
	MemoryIDs   []string `json:"memory_ids"`
}

// List returns clusters ordered by creation time then importance
func (e *Engine) List(ctx context.Context, limit int) ([]Summary, error) {
	const op = "cluster.List"

	if limit <= 0 {
		limit = DefaultListLimit
	}

	db := e.db.WithContext(ctx)
	var clusters []database.MemoryCluster
	err := db.Order("created_at DESC").Order("importance_score DESC").Limit(limit).Find(&clusters).Error
	if err != nil {
		return nil, memerr.FromDB(op, fmt.Errorf("failed to list clusters: %w", err))
	}

	summaries := make([]Summary, 0, len(clusters))
	if len(clusters) == 0 {
		return summaries, nil
	}

	ids := make([]string, 0, len(clusters))
	for _, c := range clusters {
		ids = append(ids, c.ID)
	}
	var members []database.ClusterMember
	err = db.Where("cluster_id IN ?", ids).Order("membership_strength DESC").Find(&members).Error
	if err != nil {
		return nil, memerr.FromDB(op, fmt.Errorf("failed to list cluster members: %w", err))
	}
	byCluster := make(map[string][]string, len(clusters))
	for _, m := range members {
		byCluster[m.ClusterID] = append(byCluster[m.ClusterID], m.MemoryID)
	}

	for _, c := range clusters {
		memoryIDs := byCluster[c.ID]
		if memoryIDs == nil {
			memoryIDs = []string{}
		}
		summaries = append(summaries, Summary{
			MemoryCluster: c,
			MemoryCount:   len(memoryIDs),
			MemoryIDs:     memoryIDs,
		})
	}
	return summaries, nil
}

// Member is an active memory of a cluster
type Member struct {
	database.Memory
	MembershipStrength float64 `json:"membership_strength"`
}

// Activation is the outcome of Activate
type Activation struct {
	ClusterID           string   `json:"cluster_id"`
	ActivationID        string   `json:"activation_id"`
	ActivationCount     int64    `json:"activation_count"`
	CoActivatedClusters []string `json:"co_activated_clusters"`
	Members             []Member `json:"members"`
}

// Activate bumps the activation counter, appends a history row and
// returns the cluster's active members ordered by membership strength
// then relevance, capped at limit.
func (e *Engine) Activate(ctx context.Context, clusterID string, activationContext *string, limit int) (*Activation, error) {
	const op = "cluster.Activate"

	if limit <= 0 {
		limit = DefaultActivateLimit
	}
	if _, err := uuid.Parse(clusterID); err != nil {
		return nil, memerr.NotFound(op, "cluster", clusterID)
	}

	now := e.now()
	out := &Activation{ClusterID: clusterID}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&database.MemoryCluster{}).
			Where("id = ?", clusterID).
			UpdateColumns(map[string]interface{}{
				"activation_count": gorm.Expr("activation_count + ?", 1),
				"last_activated":   now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update cluster activation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return memerr.NotFound(op, "cluster", clusterID)
		}

		var coActivated []string
		err := tx.Model(&database.MemoryCluster{}).
			Where("id <> ? AND last_activated >= ?", clusterID, now.Add(-e.cfg.CoActivationWindow)).
			Order("last_activated DESC").
			Pluck("id", &coActivated).Error
		if err != nil {
			return fmt.Errorf("failed to find co-activated clusters: %w", err)
		}
		if coActivated == nil {
			coActivated = []string{}
		}

		row := &database.ClusterActivation{
			ID:                  uuid.NewString(),
			ClusterID:           clusterID,
			ActivatedAt:         now,
			Context:             activationContext,
			Strength:            1.0,
			CoActivatedClusters: datatypes.JSONSlice[string](coActivated),
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to record activation: %w", err)
		}

		var counts []int64
		if err := tx.Model(&database.MemoryCluster{}).Where("id = ?", clusterID).
			Pluck("activation_count", &counts).Error; err != nil {
			return fmt.Errorf("failed to read activation count: %w", err)
		}
		if len(counts) > 0 {
			out.ActivationCount = counts[0]
		}

		out.ActivationID = row.ID
		out.CoActivatedClusters = coActivated
		return nil
	})
	if err != nil {
		return nil, memerr.FromDB(op, err)
	}

	members, err := e.activeMembers(ctx, clusterID)
	if err != nil {
		return nil, memerr.FromDB(op, err)
	}
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].MembershipStrength != members[j].MembershipStrength {
			return members[i].MembershipStrength > members[j].MembershipStrength
		}
		return members[i].RelevanceScore > members[j].RelevanceScore
	})
	if len(members) > limit {
		members = members[:limit]
	}
	out.Members = members

	e.logger.Debug("cluster activated",
		zap.String("id", clusterID),
		zap.Int("co_activated", len(out.CoActivatedClusters)),
		zap.Int("members", len(members)))
	return out, nil
}

// activeMembers loads the cluster's active member memories with
// relevance filled in. Embeddings are not returned.
func (e *Engine) activeMembers(ctx context.Context, clusterID string) ([]Member, error) {
	db := e.db.WithContext(ctx)

	var edges []database.ClusterMember
	if err := db.Where("cluster_id = ?", clusterID).Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("failed to load cluster members: %w", err)
	}
	members := []Member{}
	if len(edges) == 0 {
		return members, nil
	}

	strength := make(map[string]float64, len(edges))
	ids := make([]string, 0, len(edges))
	for _, m := range edges {
		strength[m.MemoryID] = m.MembershipStrength
		ids = append(ids, m.MemoryID)
	}

	var mems []database.Memory
	err := db.Omit("embedding").
		Where("id IN ? AND status = ?", ids, database.StatusActive).
		Find(&mems).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load member memories: %w", err)
	}

	now := e.now()
	for _, mem := range mems {
		mem.RelevanceScore = memory.Relevance(mem.Importance, mem.DecayRate, mem.CreatedAt, now)
		members = append(members, Member{Memory: mem, MembershipStrength: strength[mem.ID]})
	}
	return members, nil
}

// Similar is a cluster whose centroid is close to another's
type Similar struct {
	ClusterID   string  `json:"cluster_id"`
	Name        string  `json:"name"`
	ClusterType string  `json:"cluster_type"`
	Similarity  float64 `json:"similarity"`
}

// FindSimilar compares the cluster's centroid against every other
// cluster. Clusters with a zero centroid never match.
func (e *Engine) FindSimilar(ctx context.Context, clusterID string, threshold float64) ([]Similar, error) {
	const op = "cluster.FindSimilar"

	target, err := e.get(ctx, op, clusterID)
	if err != nil {
		return nil, err
	}

	similar := []Similar{}
	if target.CentroidEmbedding.IsZero() {
		return similar, nil
	}

	var others []database.MemoryCluster
	err = e.db.WithContext(ctx).
		Select("id", "name", "cluster_type", "centroid_embedding").
		Where("id <> ?", clusterID).
		Find(&others).Error
	if err != nil {
		return nil, memerr.FromDB(op, fmt.Errorf("failed to load clusters: %w", err))
	}

	for _, c := range others {
		if c.CentroidEmbedding.IsZero() {
			continue
		}
		sim := embeddings.CosineSimilarity(target.CentroidEmbedding, c.CentroidEmbedding)
		if sim < threshold {
			continue
		}
		similar = append(similar, Similar{
			ClusterID:   c.ID,
			Name:        c.Name,
			ClusterType: c.ClusterType,
			Similarity:  sim,
		})
	}

	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].Similarity > similar[j].Similarity
	})
	return similar, nil
}

// LinkParams holds the input for Link
type LinkParams struct {
	From     string
	To       string
	Type     string
	Strength *float64
	Evidence []string
}

// Link creates or replaces the relationship between two clusters keyed
// by (from, to, type). Returns nil when cluster analytics is not deployed.
func (e *Engine) Link(ctx context.Context, p LinkParams) (*database.ClusterRelationship, error) {
	const op = "cluster.Link"

	if !e.caps.ClusterAnalytics() {
		return nil, nil
	}
	relType := strings.TrimSpace(p.Type)
	if relType == "" {
		return nil, memerr.Validation(op, "relationship type is required")
	}
	strength := DefaultLinkStrength
	if p.Strength != nil {
		strength = *p.Strength
	}
	if strength < 0 || strength > 1 {
		return nil, memerr.Validation(op, "strength must be between 0 and 1, got %v", strength)
	}
	for _, id := range []string{p.From, p.To} {
		if _, err := e.get(ctx, op, id); err != nil {
			return nil, err
		}
	}

	evidence := p.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	rel := &database.ClusterRelationship{
		FromClusterID:    p.From,
		ToClusterID:      p.To,
		RelationshipType: relType,
		Strength:         strength,
		DiscoveredAt:     e.now(),
		EvidenceMemories: datatypes.JSONSlice[string](evidence),
	}
	err := e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "from_cluster_id"}, {Name: "to_cluster_id"}, {Name: "relationship_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"strength", "discovered_at", "evidence_memories"}),
	}).Create(rel).Error
	if err != nil {
		return nil, memerr.FromDB(op, fmt.Errorf("failed to link clusters: %w", err))
	}
	return rel, nil
}

// get loads a cluster; malformed and absent ids are both not found
func (e *Engine) get(ctx context.Context, op, clusterID string) (*database.MemoryCluster, error) {
	if _, err := uuid.Parse(clusterID); err != nil {
		return nil, memerr.NotFound(op, "cluster", clusterID)
	}
	var c database.MemoryCluster
	if err := e.db.WithContext(ctx).Where("id = ?", clusterID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, memerr.NotFound(op, "cluster", clusterID)
		}
		return nil, memerr.FromDB(op, err)
	}
	return &c, nil
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}
