// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import "gorm.io/gorm"

// Capabilities reports which optional subsystems exist in the connected
// schema. It is probed once at startup and shared read-only afterwards.
type Capabilities struct {
	relationships    bool
	history          bool
	clusterAnalytics bool
}

// DetectCapabilities probes the schema for the optional tables
func DetectCapabilities(db *gorm.DB) Capabilities {
	m := db.Migrator()
	return Capabilities{
		relationships:    m.HasTable(&MemoryRelationship{}),
		history:          m.HasTable(&MemoryChange{}),
		clusterAnalytics: m.HasTable(&ClusterRelationship{}),
	}
}

// NewCapabilities builds a capability set directly
func NewCapabilities(f Features) Capabilities {
	return Capabilities{
		relationships:    f.Relationships,
		history:          f.History,
		clusterAnalytics: f.ClusterAnalytics,
	}
}

// Relationships reports whether the memory relationship graph is deployed
func (c Capabilities) Relationships() bool { return c.relationships }

// History reports whether the change history is deployed
func (c Capabilities) History() bool { return c.history }

// ClusterAnalytics reports whether inter-cluster relationships are deployed
func (c Capabilities) ClusterAnalytics() bool { return c.clusterAnalytics }
