package service

import (
	"context"
	"fmt"

	"github.com/gdrocha-io/togglr-backend/internal/cache"
	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/repository"
)

type EnvironmentProvider interface {
	ListEnvironments(ctx context.Context) ([]model.Environment, error)
	GetEnvironment(ctx context.Context, id uint64) (*model.Environment, error)
	CreateEnvironment(ctx context.Context, name string) (*model.Environment, error)
	UpdateEnvironment(ctx context.Context, id uint64, name string) (*model.Environment, error)
	DeleteEnvironment(ctx context.Context, id uint64) error
	EnvironmentFeatureCounts(ctx context.Context, id uint64) (model.FeatureCounts, error)
}

type EnvironmentService struct {
	environments repository.EnvironmentInterface
	features     repository.FeatureInterface
	cache        cache.Store
}

func NewEnvironmentService(environments repository.EnvironmentInterface, features repository.FeatureInterface, store cache.Store) *EnvironmentService {
	return &EnvironmentService{environments: environments, features: features, cache: store}
}

func (s *EnvironmentService) ListEnvironments(ctx context.Context) ([]model.Environment, error) {
	return s.environments.List(ctx)
}

func (s *EnvironmentService) GetEnvironment(ctx context.Context, id uint64) (*model.Environment, error) {
	env, err := s.environments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, fmt.Errorf("environment %d: %w", id, ErrNotFound)
	}
	return env, nil
}

func (s *EnvironmentService) CreateEnvironment(ctx context.Context, name string) (*model.Environment, error) {
	env := &model.Environment{Name: name}
	if err := s.environments.Save(ctx, env); err != nil {
		return nil, fmt.Errorf("create environment %q: %w", name, err)
	}
	invalidateAll(ctx, s.cache)
	return env, nil
}

// UpdateEnvironment renames an environment. Cached features embed the old
// name, so both regions are dropped.
func (s *EnvironmentService) UpdateEnvironment(ctx context.Context, id uint64, name string) (*model.Environment, error) {
	env, err := s.GetEnvironment(ctx, id)
	if err != nil {
		return nil, err
	}
	env.Name = name
	if err := s.environments.Save(ctx, env); err != nil {
		return nil, fmt.Errorf("update environment %d: %w", id, err)
	}
	invalidateAll(ctx, s.cache)
	return env, nil
}

// DeleteEnvironment refuses to remove an environment that still has features.
func (s *EnvironmentService) DeleteEnvironment(ctx context.Context, id uint64) error {
	if _, err := s.GetEnvironment(ctx, id); err != nil {
		return err
	}
	counts, err := s.features.CountByEnvironment(ctx, id)
	if err != nil {
		return err
	}
	if counts.Total > 0 {
		return fmt.Errorf("cannot delete environment with %d associated features: %w", counts.Total, ErrConstraintViolation)
	}
	if err := s.environments.DeleteByID(ctx, id); err != nil {
		return err
	}
	invalidateAll(ctx, s.cache)
	return nil
}

func (s *EnvironmentService) EnvironmentFeatureCounts(ctx context.Context, id uint64) (model.FeatureCounts, error) {
	return s.features.CountByEnvironment(ctx, id)
}

// findOrCreateEnvironment is used by feature creation; the implicit creation
// is not audited.
func findOrCreateEnvironment(ctx context.Context, repo repository.EnvironmentInterface, name string) (*model.Environment, error) {
	env, err := repo.FindByName(ctx, name)
	if err != nil || env != nil {
		return env, err
	}
	env = &model.Environment{Name: name}
	if err := repo.Save(ctx, env); err != nil {
		return nil, fmt.Errorf("create environment %q: %w", name, err)
	}
	return env, nil
}
