package model

import (
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	ActionAccess AuditAction = "ACCESS"
	ActionCreate AuditAction = "CREATE"
	ActionUpdate AuditAction = "UPDATE"
	ActionDelete AuditAction = "DELETE"
)

type EntityKind string

const (
	EntityFeature     EntityKind = "FEATURE"
	EntityNamespace   EntityKind = "NAMESPACE"
	EntityEnvironment EntityKind = "ENVIRONMENT"
)

type ActorKind string

const (
	ActorUser   ActorKind = "USER"
	ActorClient ActorKind = "CLIENT"
	ActorSystem ActorKind = "SYSTEM"
)

// DataSource tags where an ACCESS was served from.
type DataSource string

const (
	SourceCache    DataSource = "CACHE"
	SourceDatabase DataSource = "DATABASE"
)

// AuditLog is append-only. It references entities by id and name only so the
// history outlives the entity.
type AuditLog struct {
	ID         uint64         `json:"id" gorm:"primaryKey"`
	Actor      string         `json:"actor" gorm:"size:128;not null;index"`
	ActorKind  ActorKind      `json:"actor_kind" gorm:"size:16;not null"`
	Action     AuditAction    `json:"action" gorm:"size:16;not null;index"`
	EntityKind EntityKind     `json:"entity_kind" gorm:"size:16;not null;index:idx_audit_entity"`
	EntityID   uint64         `json:"entity_id" gorm:"not null;index:idx_audit_entity"`
	EntityName string         `json:"entity_name" gorm:"size:255"`
	OldValues  datatypes.JSON `json:"old_values,omitempty"`
	NewValues  datatypes.JSON `json:"new_values,omitempty"`
	DataSource *DataSource    `json:"data_source" gorm:"size:16"`
	IPAddress  string         `json:"ip_address" gorm:"size:45"`
	TraceID    string         `json:"trace_id" gorm:"size:36;index"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
