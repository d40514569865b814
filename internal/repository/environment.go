package repository

import (
	"context"
	"errors"

	"github.com/gdrocha-io/togglr-backend/internal/model"

	"gorm.io/gorm"
)

// EnvironmentInterface defines persistence for environments.
type EnvironmentInterface interface {
	FindByID(ctx context.Context, id uint64) (*model.Environment, error)
	FindByName(ctx context.Context, name string) (*model.Environment, error)
	List(ctx context.Context) ([]model.Environment, error)
	Save(ctx context.Context, environment *model.Environment) error
	DeleteByID(ctx context.Context, id uint64) error
	Count(ctx context.Context) (int64, error)
	WithTx(tx *gorm.DB) EnvironmentInterface
}

type EnvironmentRepository struct {
	db *gorm.DB
}

func NewEnvironmentRepository(db *gorm.DB) *EnvironmentRepository {
	return &EnvironmentRepository{db: db}
}

func (r *EnvironmentRepository) FindByID(ctx context.Context, id uint64) (*model.Environment, error) {
	var env model.Environment
	if err := r.db.WithContext(ctx).First(&env, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &env, nil
}

func (r *EnvironmentRepository) FindByName(ctx context.Context, name string) (*model.Environment, error) {
	var env model.Environment
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&env).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &env, nil
}

func (r *EnvironmentRepository) List(ctx context.Context) ([]model.Environment, error) {
	var envs []model.Environment
	err := r.db.WithContext(ctx).Order("name ASC").Find(&envs).Error
	return envs, err
}

func (r *EnvironmentRepository) Save(ctx context.Context, environment *model.Environment) error {
	return translate(r.db.WithContext(ctx).Save(environment).Error)
}

func (r *EnvironmentRepository) DeleteByID(ctx context.Context, id uint64) error {
	return translate(r.db.WithContext(ctx).Delete(&model.Environment{}, id).Error)
}

func (r *EnvironmentRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Environment{}).Count(&total).Error
	return total, err
}

func (r *EnvironmentRepository) WithTx(tx *gorm.DB) EnvironmentInterface {
	return &EnvironmentRepository{db: tx}
}
