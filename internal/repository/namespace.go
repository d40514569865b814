package repository

import (
	"context"
	"errors"

	"github.com/gdrocha-io/togglr-backend/internal/model"

	"gorm.io/gorm"
)

// NamespaceInterface defines persistence for namespaces.
type NamespaceInterface interface {
	FindByID(ctx context.Context, id uint64) (*model.Namespace, error)
	FindByName(ctx context.Context, name string) (*model.Namespace, error)
	List(ctx context.Context) ([]model.Namespace, error)
	Save(ctx context.Context, namespace *model.Namespace) error
	DeleteByID(ctx context.Context, id uint64) error
	Count(ctx context.Context) (int64, error)
	WithTx(tx *gorm.DB) NamespaceInterface
}

type NamespaceRepository struct {
	db *gorm.DB
}

func NewNamespaceRepository(db *gorm.DB) *NamespaceRepository {
	return &NamespaceRepository{db: db}
}

func (r *NamespaceRepository) FindByID(ctx context.Context, id uint64) (*model.Namespace, error) {
	var ns model.Namespace
	if err := r.db.WithContext(ctx).First(&ns, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ns, nil
}

func (r *NamespaceRepository) FindByName(ctx context.Context, name string) (*model.Namespace, error) {
	var ns model.Namespace
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&ns).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ns, nil
}

func (r *NamespaceRepository) List(ctx context.Context) ([]model.Namespace, error) {
	var namespaces []model.Namespace
	err := r.db.WithContext(ctx).Order("name ASC").Find(&namespaces).Error
	return namespaces, err
}

func (r *NamespaceRepository) Save(ctx context.Context, namespace *model.Namespace) error {
	return translate(r.db.WithContext(ctx).Save(namespace).Error)
}

func (r *NamespaceRepository) DeleteByID(ctx context.Context, id uint64) error {
	return translate(r.db.WithContext(ctx).Delete(&model.Namespace{}, id).Error)
}

func (r *NamespaceRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Namespace{}).Count(&total).Error
	return total, err
}

func (r *NamespaceRepository) WithTx(tx *gorm.DB) NamespaceInterface {
	return &NamespaceRepository{db: tx}
}
