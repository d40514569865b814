package model

import (
	"time"

	"gorm.io/datatypes"
)

type Namespace struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Environment struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Feature is unique by (name, namespace, environment). Namespace and
// Environment are resolved relations and are never written through Feature.
type Feature struct {
	ID            uint64         `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"size:128;not null;uniqueIndex:uk_feature_natural_key" json:"name"`
	NamespaceID   uint64         `gorm:"not null;uniqueIndex:uk_feature_natural_key" json:"namespace_id"`
	Namespace     Namespace      `gorm:"constraint:OnDelete:RESTRICT" json:"namespace"`
	EnvironmentID uint64         `gorm:"not null;uniqueIndex:uk_feature_natural_key" json:"environment_id"`
	Environment   Environment    `gorm:"constraint:OnDelete:RESTRICT" json:"environment"`
	Enabled       bool           `gorm:"not null" json:"enabled"`
	Metadata      datatypes.JSON `json:"metadata"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Dashboard is the aggregate served by the metrics endpoint.
type Dashboard struct {
	TotalFeatures     int64 `json:"total_features"`
	ActiveFeatures    int64 `json:"active_features"`
	TotalEnvironments int64 `json:"total_environments"`
	TotalNamespaces   int64 `json:"total_namespaces"`
}

// FeatureCounts summarises the features attached to a namespace or environment.
type FeatureCounts struct {
	Total    int64
	Active   int64
	Inactive int64
}
