// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/embeddings"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Memory is the canonical long-term memory record. Exactly one type
// extension row exists per memory, matching Type.
type Memory struct {
	ID           string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Type         string            `gorm:"type:varchar(16);not null;index" json:"type"`
	Status       string            `gorm:"type:varchar(16);not null;default:active;index" json:"status"`
	Content      string            `gorm:"type:text;not null" json:"content"`
	Embedding    embeddings.Vector `gorm:"not null" json:"embedding,omitempty"`
	Importance   float64           `gorm:"not null;default:0" json:"importance"`
	DecayRate    float64           `gorm:"not null;default:0.01" json:"decay_rate"`
	AccessCount  int64             `gorm:"not null;default:0" json:"access_count"`
	LastAccessed *time.Time        `json:"last_accessed,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null" json:"updated_at"`

	// RelevanceScore is derived on read and never stored.
	RelevanceScore float64 `gorm:"-" json:"relevance_score"`

	Episodic   *EpisodicMemory   `gorm:"foreignKey:MemoryID;constraint:OnDelete:CASCADE" json:"episodic,omitempty"`
	Semantic   *SemanticMemory   `gorm:"foreignKey:MemoryID;constraint:OnDelete:CASCADE" json:"semantic,omitempty"`
	Procedural *ProceduralMemory `gorm:"foreignKey:MemoryID;constraint:OnDelete:CASCADE" json:"procedural,omitempty"`
	Strategic  *StrategicMemory  `gorm:"foreignKey:MemoryID;constraint:OnDelete:CASCADE" json:"strategic,omitempty"`

	Memberships []ClusterMember      `gorm:"foreignKey:MemoryID;constraint:OnDelete:CASCADE" json:"-"`
	Outgoing    []MemoryRelationship `gorm:"foreignKey:FromMemoryID;constraint:OnDelete:CASCADE" json:"-"`
	Incoming    []MemoryRelationship `gorm:"foreignKey:ToMemoryID;constraint:OnDelete:CASCADE" json:"-"`
	Changes     []MemoryChange       `gorm:"foreignKey:MemoryID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Memory
func (Memory) TableName() string {
	return "memories"
}

// BeforeCreate assigns a UUID when none is set
func (m *Memory) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// EpisodicMemory holds event-specific fields
type EpisodicMemory struct {
	MemoryID           string         `gorm:"primaryKey;type:varchar(36)" json:"-"`
	ActionTaken        datatypes.JSON `json:"action_taken,omitempty"`
	Context            datatypes.JSON `json:"context,omitempty"`
	Result             datatypes.JSON `json:"result,omitempty"`
	EmotionalValence   float64        `gorm:"not null;default:0" json:"emotional_valence"`
	VerificationStatus *bool          `json:"verification_status,omitempty"`
	EventTime          time.Time      `json:"event_time"`
}

// TableName specifies the table name for EpisodicMemory
func (EpisodicMemory) TableName() string {
	return "episodic_memories"
}

// SemanticMemory holds fact-specific fields
type SemanticMemory struct {
	MemoryID         string                      `gorm:"primaryKey;type:varchar(36)" json:"-"`
	Confidence       float64                     `gorm:"not null" json:"confidence"`
	LastValidated    *time.Time                  `json:"last_validated,omitempty"`
	SourceReferences datatypes.JSON              `json:"source_references,omitempty"`
	Contradictions   datatypes.JSON              `json:"contradictions,omitempty"`
	Category         datatypes.JSONSlice[string] `json:"category"`
	RelatedConcepts  datatypes.JSONSlice[string] `json:"related_concepts"`
}

// TableName specifies the table name for SemanticMemory
func (SemanticMemory) TableName() string {
	return "semantic_memories"
}

// ProceduralMemory holds skill-specific fields
type ProceduralMemory struct {
	MemoryID        string         `gorm:"primaryKey;type:varchar(36)" json:"-"`
	Steps           datatypes.JSON `gorm:"not null" json:"steps"`
	Prerequisites   datatypes.JSON `json:"prerequisites,omitempty"`
	SuccessCount    int64          `gorm:"not null;default:0" json:"success_count"`
	TotalAttempts   int64          `gorm:"not null;default:0" json:"total_attempts"`
	AverageDuration *time.Duration `json:"average_duration,omitempty"`
	FailurePoints   datatypes.JSON `json:"failure_points,omitempty"`

	SuccessRate float64 `gorm:"-" json:"success_rate"`
}

// TableName specifies the table name for ProceduralMemory
func (ProceduralMemory) TableName() string {
	return "procedural_memories"
}

// AfterFind derives the success rate
func (p *ProceduralMemory) AfterFind(tx *gorm.DB) error {
	p.SuccessRate = SuccessRate(p.SuccessCount, p.TotalAttempts)
	return nil
}

// SuccessRate returns successCount/totalAttempts, or 0 with no attempts.
func SuccessRate(successCount, totalAttempts int64) float64 {
	if totalAttempts <= 0 {
		return 0
	}
	return float64(successCount) / float64(totalAttempts)
}

// StrategicMemory holds pattern-specific fields
type StrategicMemory struct {
	MemoryID             string         `gorm:"primaryKey;type:varchar(36)" json:"-"`
	PatternDescription   string         `gorm:"type:text;not null" json:"pattern_description"`
	SupportingEvidence   datatypes.JSON `json:"supporting_evidence,omitempty"`
	ConfidenceScore      float64        `gorm:"not null" json:"confidence_score"`
	SuccessMetrics       datatypes.JSON `json:"success_metrics,omitempty"`
	AdaptationHistory    datatypes.JSON `json:"adaptation_history,omitempty"`
	ContextApplicability datatypes.JSON `json:"context_applicability,omitempty"`
}

// TableName specifies the table name for StrategicMemory
func (StrategicMemory) TableName() string {
	return "strategic_memories"
}

// WorkingMemory is a TTL-bound staging record. It is never decay-scored.
type WorkingMemory struct {
	ID        string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Content   string            `gorm:"type:text;not null" json:"content"`
	Embedding embeddings.Vector `gorm:"not null" json:"embedding,omitempty"`
	CreatedAt time.Time         `gorm:"not null;index" json:"created_at"`
	Expiry    *time.Time        `gorm:"index" json:"expiry,omitempty"`
}

// TableName specifies the table name for WorkingMemory
func (WorkingMemory) TableName() string {
	return "working_memory"
}

// BeforeCreate assigns a UUID when none is set
func (w *WorkingMemory) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// MemoryCluster groups related memories around a centroid
type MemoryCluster struct {
	ID                 string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ClusterType        string                      `gorm:"type:varchar(16);not null;index" json:"cluster_type"`
	Name               string                      `gorm:"type:text;not null" json:"name"`
	Description        string                      `gorm:"type:text" json:"description,omitempty"`
	CentroidEmbedding  embeddings.Vector           `json:"-"`
	EmotionalSignature datatypes.JSON              `json:"emotional_signature,omitempty"`
	Keywords           datatypes.JSONSlice[string] `json:"keywords"`
	ImportanceScore    float64                     `gorm:"not null;default:0" json:"importance_score"`
	CoherenceScore     *float64                    `json:"coherence_score,omitempty"`
	LastActivated      *time.Time                  `json:"last_activated,omitempty"`
	ActivationCount    int64                       `gorm:"not null;default:0" json:"activation_count"`
	CreatedAt          time.Time                   `gorm:"not null;index" json:"created_at"`
	UpdatedAt          time.Time                   `gorm:"not null" json:"updated_at"`

	Members       []ClusterMember       `gorm:"foreignKey:ClusterID;constraint:OnDelete:CASCADE" json:"-"`
	Activations   []ClusterActivation   `gorm:"foreignKey:ClusterID;constraint:OnDelete:CASCADE" json:"-"`
	OutgoingLinks []ClusterRelationship `gorm:"foreignKey:FromClusterID;constraint:OnDelete:CASCADE" json:"-"`
	IncomingLinks []ClusterRelationship `gorm:"foreignKey:ToClusterID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for MemoryCluster
func (MemoryCluster) TableName() string {
	return "memory_clusters"
}

// BeforeCreate assigns a UUID when none is set
func (c *MemoryCluster) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ClusterMember is the membership edge between a cluster and a memory
type ClusterMember struct {
	ClusterID              string    `gorm:"primaryKey;type:varchar(36)" json:"cluster_id"`
	MemoryID               string    `gorm:"primaryKey;type:varchar(36);index" json:"memory_id"`
	MembershipStrength     float64   `gorm:"not null" json:"membership_strength"`
	AddedAt                time.Time `gorm:"not null" json:"added_at"`
	ContributionToCentroid *float64  `json:"contribution_to_centroid,omitempty"`
}

// TableName specifies the table name for ClusterMember
func (ClusterMember) TableName() string {
	return "memory_cluster_members"
}

// ClusterActivation is an append-only activation history row
type ClusterActivation struct {
	ID                  string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ClusterID           string                      `gorm:"type:varchar(36);not null;index" json:"cluster_id"`
	ActivatedAt         time.Time                   `gorm:"not null;index" json:"activated_at"`
	Context             *string                     `gorm:"type:text" json:"context,omitempty"`
	Strength            float64                     `gorm:"not null" json:"strength"`
	CoActivatedClusters datatypes.JSONSlice[string] `json:"co_activated_clusters"`
}

// TableName specifies the table name for ClusterActivation
func (ClusterActivation) TableName() string {
	return "cluster_activation_history"
}

// BeforeCreate assigns a UUID when none is set
func (a *ClusterActivation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// ClusterRelationship links two clusters. (from, to, type) is unique.
type ClusterRelationship struct {
	FromClusterID    string                      `gorm:"primaryKey;type:varchar(36)" json:"from_cluster_id"`
	ToClusterID      string                      `gorm:"primaryKey;type:varchar(36)" json:"to_cluster_id"`
	RelationshipType string                      `gorm:"primaryKey;type:varchar(32)" json:"relationship_type"`
	Strength         float64                     `gorm:"not null" json:"strength"`
	DiscoveredAt     time.Time                   `gorm:"not null" json:"discovered_at"`
	EvidenceMemories datatypes.JSONSlice[string] `json:"evidence_memories"`
}

// TableName specifies the table name for ClusterRelationship
func (ClusterRelationship) TableName() string {
	return "cluster_relationships"
}

// MemoryRelationship is a directed, weighted edge between memories.
// Duplicate (from, to, type) edges are allowed.
type MemoryRelationship struct {
	ID               string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FromMemoryID     string         `gorm:"type:varchar(36);not null;index" json:"from_memory_id"`
	ToMemoryID       string         `gorm:"type:varchar(36);not null;index" json:"to_memory_id"`
	RelationshipType string         `gorm:"type:varchar(32);not null" json:"relationship_type"`
	Strength         float64        `gorm:"not null" json:"strength"`
	Properties       datatypes.JSON `json:"properties,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for MemoryRelationship
func (MemoryRelationship) TableName() string {
	return "memory_relationships"
}

// BeforeCreate assigns a UUID when none is set
func (r *MemoryRelationship) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// MemoryChange is an append-only audit event
type MemoryChange struct {
	ID         string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MemoryID   string         `gorm:"type:varchar(36);not null;index" json:"memory_id"`
	ChangedAt  time.Time      `gorm:"not null;index" json:"changed_at"`
	ChangeType string         `gorm:"type:varchar(32);not null" json:"change_type"`
	OldValue   datatypes.JSON `json:"old_value,omitempty"`
	NewValue   datatypes.JSON `json:"new_value,omitempty"`
}

// TableName specifies the table name for MemoryChange
func (MemoryChange) TableName() string {
	return "memory_changes"
}

// BeforeCreate assigns a UUID when none is set
func (c *MemoryChange) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
