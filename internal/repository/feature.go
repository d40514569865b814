package repository

import (
	"context"
	"errors"

	"github.com/gdrocha-io/togglr-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeatureInterface defines persistence for features. Lookups return (nil, nil)
// when the row does not exist.
type FeatureInterface interface {
	FindByID(ctx context.Context, id uint64) (*model.Feature, error)
	FindByNaturalKey(ctx context.Context, name string, namespaceID, environmentID uint64) (*model.Feature, error)
	ListByScope(ctx context.Context, namespaceID, environmentID uint64, enabledOnly bool) ([]model.Feature, error)
	ListAll(ctx context.Context) ([]model.Feature, error)
	Save(ctx context.Context, feature *model.Feature) error
	DeleteByID(ctx context.Context, id uint64) error
	Count(ctx context.Context) (int64, error)
	CountEnabled(ctx context.Context) (int64, error)
	CountByNamespace(ctx context.Context, namespaceID uint64) (model.FeatureCounts, error)
	CountByEnvironment(ctx context.Context, environmentID uint64) (model.FeatureCounts, error)
	WithTx(tx *gorm.DB) FeatureInterface
}

type FeatureRepository struct {
	db *gorm.DB
}

func NewFeatureRepository(db *gorm.DB) *FeatureRepository {
	return &FeatureRepository{db: db}
}

func (r *FeatureRepository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Namespace").Preload("Environment")
}

// FindByID returns the feature with its namespace and environment resolved.
func (r *FeatureRepository) FindByID(ctx context.Context, id uint64) (*model.Feature, error) {
	var feature model.Feature
	if err := r.withRelations(ctx).First(&feature, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &feature, nil
}

func (r *FeatureRepository) FindByNaturalKey(ctx context.Context, name string, namespaceID, environmentID uint64) (*model.Feature, error) {
	var feature model.Feature
	err := r.withRelations(ctx).
		Where("name = ? AND namespace_id = ? AND environment_id = ?", name, namespaceID, environmentID).
		First(&feature).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &feature, nil
}

func (r *FeatureRepository) ListByScope(ctx context.Context, namespaceID, environmentID uint64, enabledOnly bool) ([]model.Feature, error) {
	var features []model.Feature
	query := r.withRelations(ctx).Where("namespace_id = ? AND environment_id = ?", namespaceID, environmentID)
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}
	err := query.Order("name ASC").Find(&features).Error
	return features, err
}

func (r *FeatureRepository) ListAll(ctx context.Context) ([]model.Feature, error) {
	var features []model.Feature
	err := r.withRelations(ctx).Order("id ASC").Find(&features).Error
	return features, err
}

// Save inserts or updates the feature row only; relations are never upserted.
func (r *FeatureRepository) Save(ctx context.Context, feature *model.Feature) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(feature).Error)
}

func (r *FeatureRepository) DeleteByID(ctx context.Context, id uint64) error {
	return translate(r.db.WithContext(ctx).Delete(&model.Feature{}, id).Error)
}

func (r *FeatureRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Feature{}).Count(&total).Error
	return total, err
}

func (r *FeatureRepository) CountEnabled(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Feature{}).Where("enabled = ?", true).Count(&total).Error
	return total, err
}

func (r *FeatureRepository) CountByNamespace(ctx context.Context, namespaceID uint64) (model.FeatureCounts, error) {
	return r.countBy(ctx, "namespace_id", namespaceID)
}

func (r *FeatureRepository) CountByEnvironment(ctx context.Context, environmentID uint64) (model.FeatureCounts, error) {
	return r.countBy(ctx, "environment_id", environmentID)
}

func (r *FeatureRepository) countBy(ctx context.Context, column string, id uint64) (model.FeatureCounts, error) {
	var counts model.FeatureCounts
	db := r.db.WithContext(ctx).Model(&model.Feature{})
	if err := db.Where(column+" = ?", id).Count(&counts.Total).Error; err != nil {
		return counts, err
	}
	if err := r.db.WithContext(ctx).Model(&model.Feature{}).
		Where(column+" = ? AND enabled = ?", id, true).
		Count(&counts.Active).Error; err != nil {
		return counts, err
	}
	counts.Inactive = counts.Total - counts.Active
	return counts, nil
}

func (r *FeatureRepository) WithTx(tx *gorm.DB) FeatureInterface {
	return &FeatureRepository{db: tx}
}
