package repository

import (
	"context"

	"github.com/gdrocha-io/togglr-backend/internal/model"

	"gorm.io/gorm"
)

// AuditFilter narrows an audit query. Zero values mean "any".
type AuditFilter struct {
	EntityKind model.EntityKind
	EntityID   *uint64
	Actions    []model.AuditAction
	ActorKind  model.ActorKind
	Actor      string
	DataSource model.DataSource
}

// AuditInterface defines audit log persistence. Entries are append-only.
type AuditInterface interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	Query(ctx context.Context, filter AuditFilter, page PageRequest) ([]model.AuditLog, int64, error)
	PingContext(ctx context.Context) error
}

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create persists the entry; CreatedAt is stamped by gorm at insert time.
func (r *AuditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Query returns one page of matching entries newest first, plus the total.
func (r *AuditRepository) Query(ctx context.Context, filter AuditFilter, page PageRequest) ([]model.AuditLog, int64, error) {
	page = page.Normalize()

	db := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if filter.EntityKind != "" {
		db = db.Where("entity_kind = ?", filter.EntityKind)
	}
	if filter.EntityID != nil {
		db = db.Where("entity_id = ?", *filter.EntityID)
	}
	if len(filter.Actions) > 0 {
		db = db.Where("action IN ?", filter.Actions)
	}
	if filter.ActorKind != "" {
		db = db.Where("actor_kind = ?", filter.ActorKind)
	}
	if filter.Actor != "" {
		db = db.Where("actor = ?", filter.Actor)
	}
	if filter.DataSource != "" {
		db = db.Where("data_source = ?", filter.DataSource)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.AuditLog{}, 0, nil
	}

	var entries []model.AuditLog
	err := db.Order("created_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *AuditRepository) PingContext(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
