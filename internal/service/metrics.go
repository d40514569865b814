package service

import (
	"context"

	"github.com/gdrocha-io/togglr-backend/internal/cache"
	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/repository"

	"golang.org/x/sync/singleflight"
)

type MetricsProvider interface {
	Dashboard(ctx context.Context) (*model.Dashboard, error)
}

type MetricsService struct {
	features     repository.FeatureInterface
	namespaces   repository.NamespaceInterface
	environments repository.EnvironmentInterface
	cache        cache.Store
	group        singleflight.Group
}

func NewMetricsService(features repository.FeatureInterface, namespaces repository.NamespaceInterface, environments repository.EnvironmentInterface, store cache.Store) *MetricsService {
	return &MetricsService{
		features:     features,
		namespaces:   namespaces,
		environments: environments,
		cache:        store,
	}
}

// Dashboard returns the global counters, cached in the metrics region until
// the next mutation.
func (s *MetricsService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	return readThrough(ctx, s.cache, &s.group, cache.RegionMetrics, cache.DashboardKey, s.load)
}

func (s *MetricsService) load(ctx context.Context) (*model.Dashboard, error) {
	var (
		d   model.Dashboard
		err error
	)
	if d.TotalFeatures, err = s.features.Count(ctx); err != nil {
		return nil, err
	}
	if d.ActiveFeatures, err = s.features.CountEnabled(ctx); err != nil {
		return nil, err
	}
	if d.TotalEnvironments, err = s.environments.Count(ctx); err != nil {
		return nil, err
	}
	if d.TotalNamespaces, err = s.namespaces.Count(ctx); err != nil {
		return nil, err
	}
	return &d, nil
}
