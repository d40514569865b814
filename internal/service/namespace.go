package service

import (
	"context"
	"fmt"

	"github.com/gdrocha-io/togglr-backend/internal/cache"
	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/repository"
)

type NamespaceProvider interface {
	ListNamespaces(ctx context.Context) ([]model.Namespace, error)
	GetNamespace(ctx context.Context, id uint64) (*model.Namespace, error)
	CreateNamespace(ctx context.Context, name string) (*model.Namespace, error)
	UpdateNamespace(ctx context.Context, id uint64, name string) (*model.Namespace, error)
	DeleteNamespace(ctx context.Context, id uint64) error
	NamespaceFeatureCounts(ctx context.Context, id uint64) (model.FeatureCounts, error)
}

type NamespaceService struct {
	namespaces repository.NamespaceInterface
	features   repository.FeatureInterface
	cache      cache.Store
}

func NewNamespaceService(namespaces repository.NamespaceInterface, features repository.FeatureInterface, store cache.Store) *NamespaceService {
	return &NamespaceService{namespaces: namespaces, features: features, cache: store}
}

func (s *NamespaceService) ListNamespaces(ctx context.Context) ([]model.Namespace, error) {
	return s.namespaces.List(ctx)
}

func (s *NamespaceService) GetNamespace(ctx context.Context, id uint64) (*model.Namespace, error) {
	ns, err := s.namespaces.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ns == nil {
		return nil, fmt.Errorf("namespace %d: %w", id, ErrNotFound)
	}
	return ns, nil
}

func (s *NamespaceService) CreateNamespace(ctx context.Context, name string) (*model.Namespace, error) {
	ns := &model.Namespace{Name: name}
	if err := s.namespaces.Save(ctx, ns); err != nil {
		return nil, fmt.Errorf("create namespace %q: %w", name, err)
	}
	invalidateAll(ctx, s.cache)
	return ns, nil
}

// UpdateNamespace renames a namespace. Cached features embed the old name, so
// both regions are dropped.
func (s *NamespaceService) UpdateNamespace(ctx context.Context, id uint64, name string) (*model.Namespace, error) {
	ns, err := s.GetNamespace(ctx, id)
	if err != nil {
		return nil, err
	}
	ns.Name = name
	if err := s.namespaces.Save(ctx, ns); err != nil {
		return nil, fmt.Errorf("update namespace %d: %w", id, err)
	}
	invalidateAll(ctx, s.cache)
	return ns, nil
}

// DeleteNamespace refuses to remove a namespace that still has features.
func (s *NamespaceService) DeleteNamespace(ctx context.Context, id uint64) error {
	if _, err := s.GetNamespace(ctx, id); err != nil {
		return err
	}
	counts, err := s.features.CountByNamespace(ctx, id)
	if err != nil {
		return err
	}
	if counts.Total > 0 {
		return fmt.Errorf("cannot delete namespace with %d associated features: %w", counts.Total, ErrConstraintViolation)
	}
	if err := s.namespaces.DeleteByID(ctx, id); err != nil {
		return err
	}
	invalidateAll(ctx, s.cache)
	return nil
}

func (s *NamespaceService) NamespaceFeatureCounts(ctx context.Context, id uint64) (model.FeatureCounts, error) {
	return s.features.CountByNamespace(ctx, id)
}

// findOrCreateNamespace is used by feature creation; the implicit creation is
// not audited.
func findOrCreateNamespace(ctx context.Context, repo repository.NamespaceInterface, name string) (*model.Namespace, error) {
	ns, err := repo.FindByName(ctx, name)
	if err != nil || ns != nil {
		return ns, err
	}
	ns = &model.Namespace{Name: name}
	if err := repo.Save(ctx, ns); err != nil {
		return nil, fmt.Errorf("create namespace %q: %w", name, err)
	}
	return ns, nil
}
