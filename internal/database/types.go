// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import "slices"

// Memory types
const (
	MemoryTypeEpisodic   = "episodic"
	MemoryTypeSemantic   = "semantic"
	MemoryTypeProcedural = "procedural"
	MemoryTypeStrategic  = "strategic"
)

// ValidMemoryTypes returns all valid memory type values
func ValidMemoryTypes() []string {
	return []string{
		MemoryTypeEpisodic,
		MemoryTypeSemantic,
		MemoryTypeProcedural,
		MemoryTypeStrategic,
	}
}

// IsValidMemoryType checks if a memory type is valid
func IsValidMemoryType(t string) bool {
	return slices.Contains(ValidMemoryTypes(), t)
}

// Memory statuses
const (
	StatusActive       = "active"
	StatusArchived     = "archived"
	StatusInvalidated  = "invalidated"
	StatusConsolidated = "consolidated"
	StatusDeleted      = "deleted"
)

// ValidStatuses returns all valid memory status values
func ValidStatuses() []string {
	return []string{
		StatusActive,
		StatusArchived,
		StatusInvalidated,
		StatusConsolidated,
		StatusDeleted,
	}
}

// IsValidStatus checks if a status is valid
func IsValidStatus(s string) bool {
	return slices.Contains(ValidStatuses(), s)
}

// Cluster types
const (
	ClusterTypeTheme    = "theme"
	ClusterTypeEmotion  = "emotion"
	ClusterTypeTemporal = "temporal"
	ClusterTypePerson   = "person"
	ClusterTypePattern  = "pattern"
	ClusterTypeMixed    = "mixed"
)

// ValidClusterTypes returns all valid cluster type values
func ValidClusterTypes() []string {
	return []string{
		ClusterTypeTheme,
		ClusterTypeEmotion,
		ClusterTypeTemporal,
		ClusterTypePerson,
		ClusterTypePattern,
		ClusterTypeMixed,
	}
}

// IsValidClusterType checks if a cluster type is valid
func IsValidClusterType(t string) bool {
	return slices.Contains(ValidClusterTypes(), t)
}

// Relationship types between memories
const (
	RelationshipCausal        = "causal"
	RelationshipTemporal      = "temporal"
	RelationshipSemantic      = "semantic"
	RelationshipEmotional     = "emotional"
	RelationshipStrategic     = "strategic"
	RelationshipConsolidation = "consolidation"
)

// ValidRelationshipTypes returns all valid relationship type values
func ValidRelationshipTypes() []string {
	return []string{
		RelationshipCausal,
		RelationshipTemporal,
		RelationshipSemantic,
		RelationshipEmotional,
		RelationshipStrategic,
		RelationshipConsolidation,
	}
}

// IsValidRelationshipType checks if a relationship type is valid
func IsValidRelationshipType(t string) bool {
	return slices.Contains(ValidRelationshipTypes(), t)
}

// Change event types
const (
	ChangeConsolidation = "consolidation"
	ChangeArchival      = "archival"
	ChangeDeletion      = "deletion"
	ChangeStatus        = "status_change"
)

// DefaultRelationshipStrength is used when a relationship is created
// without an explicit strength.
const DefaultRelationshipStrength = 0.5
