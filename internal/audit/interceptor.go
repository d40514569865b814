package audit

import (
	"context"

	"github.com/gdrocha-io/togglr-backend/internal/cache"
	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/service"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"go.uber.org/zap"
)

// Finder loads the current persisted state of an entity, relations resolved.
// A missing row is (nil, nil).
type Finder[T any] interface {
	FindByID(ctx context.Context, id uint64) (*T, error)
}

// snapshot captures an entity before a mutation. Lookup errors are logged and
// treated as "nothing to audit".
func snapshot[T any](ctx context.Context, finder Finder[T], kind model.EntityKind, id uint64) *T {
	current, err := finder.FindByID(ctx, id)
	if err != nil {
		logger.Warn("audit snapshot failed",
			zap.String("entity_kind", string(kind)), zap.Uint64("entity_id", id), zap.Error(err))
		return nil
	}
	return current
}

// FeatureInterceptor audits every feature access and mutation made through the
// wrapped provider. Errors from the provider are returned untouched.
type FeatureInterceptor struct {
	next   service.FeatureProvider
	finder Finder[model.Feature]
	cache  cache.Store
	log    *Log
}

var _ service.FeatureProvider = (*FeatureInterceptor)(nil)

func NewFeatureInterceptor(next service.FeatureProvider, finder Finder[model.Feature], store cache.Store, log *Log) *FeatureInterceptor {
	return &FeatureInterceptor{next: next, finder: finder, cache: store, log: log}
}

// GetFeature tags the ACCESS entry with CACHE when the key was cached just
// before the lookup.
func (i *FeatureInterceptor) GetFeature(ctx context.Context, name, namespace, environment string) (*model.Feature, error) {
	cached := i.cache.Contains(ctx, cache.RegionFeatures, cache.FeatureKey(name, namespace, environment))

	feature, err := i.next.GetFeature(ctx, name, namespace, environment)
	if err != nil || feature == nil {
		return feature, err
	}

	source := model.SourceDatabase
	if cached {
		source = model.SourceCache
	}
	i.log.LogAccess(ctx, model.EntityFeature, feature.ID, feature.Name, source)
	return feature, nil
}

func (i *FeatureInterceptor) GetEnabledFeatures(ctx context.Context, namespace, environment string) ([]model.Feature, error) {
	return i.next.GetEnabledFeatures(ctx, namespace, environment)
}

func (i *FeatureInterceptor) GetFeaturesByScope(ctx context.Context, namespace, environment string) ([]model.Feature, error) {
	return i.next.GetFeaturesByScope(ctx, namespace, environment)
}

func (i *FeatureInterceptor) GetAllFeatures(ctx context.Context) ([]model.Feature, error) {
	return i.next.GetAllFeatures(ctx)
}

func (i *FeatureInterceptor) CreateFeature(ctx context.Context, in service.CreateFeatureInput) (*model.Feature, error) {
	feature, err := i.next.CreateFeature(ctx, in)
	if err != nil {
		return nil, err
	}
	i.log.LogCreate(ctx, model.EntityFeature, feature.ID, feature.Name, feature)
	return feature, nil
}

func (i *FeatureInterceptor) UpdateFeature(ctx context.Context, id uint64, in service.UpdateFeatureInput) (*model.Feature, error) {
	before := snapshot(ctx, i.finder, model.EntityFeature, id)

	feature, err := i.next.UpdateFeature(ctx, id, in)
	if err != nil {
		return nil, err
	}
	if before != nil {
		i.log.LogUpdate(ctx, model.EntityFeature, feature.ID, feature.Name, before, feature)
	}
	return feature, nil
}

func (i *FeatureInterceptor) DeleteFeature(ctx context.Context, id uint64) error {
	before := snapshot(ctx, i.finder, model.EntityFeature, id)

	if err := i.next.DeleteFeature(ctx, id); err != nil {
		return err
	}
	if before != nil {
		i.log.LogDelete(ctx, model.EntityFeature, before.ID, before.Name, before)
	}
	return nil
}

// NamespaceInterceptor audits namespace mutations.
type NamespaceInterceptor struct {
	next   service.NamespaceProvider
	finder Finder[model.Namespace]
	log    *Log
}

var _ service.NamespaceProvider = (*NamespaceInterceptor)(nil)

func NewNamespaceInterceptor(next service.NamespaceProvider, finder Finder[model.Namespace], log *Log) *NamespaceInterceptor {
	return &NamespaceInterceptor{next: next, finder: finder, log: log}
}

func (i *NamespaceInterceptor) ListNamespaces(ctx context.Context) ([]model.Namespace, error) {
	return i.next.ListNamespaces(ctx)
}

func (i *NamespaceInterceptor) GetNamespace(ctx context.Context, id uint64) (*model.Namespace, error) {
	return i.next.GetNamespace(ctx, id)
}

func (i *NamespaceInterceptor) NamespaceFeatureCounts(ctx context.Context, id uint64) (model.FeatureCounts, error) {
	return i.next.NamespaceFeatureCounts(ctx, id)
}

func (i *NamespaceInterceptor) CreateNamespace(ctx context.Context, name string) (*model.Namespace, error) {
	ns, err := i.next.CreateNamespace(ctx, name)
	if err != nil {
		return nil, err
	}
	i.log.LogCreate(ctx, model.EntityNamespace, ns.ID, ns.Name, ns)
	return ns, nil
}

func (i *NamespaceInterceptor) UpdateNamespace(ctx context.Context, id uint64, name string) (*model.Namespace, error) {
	before := snapshot(ctx, i.finder, model.EntityNamespace, id)

	ns, err := i.next.UpdateNamespace(ctx, id, name)
	if err != nil {
		return nil, err
	}
	if before != nil {
		i.log.LogUpdate(ctx, model.EntityNamespace, ns.ID, ns.Name, before, ns)
	}
	return ns, nil
}

func (i *NamespaceInterceptor) DeleteNamespace(ctx context.Context, id uint64) error {
	before := snapshot(ctx, i.finder, model.EntityNamespace, id)

	if err := i.next.DeleteNamespace(ctx, id); err != nil {
		return err
	}
	if before != nil {
		i.log.LogDelete(ctx, model.EntityNamespace, before.ID, before.Name, before)
	}
	return nil
}

// EnvironmentInterceptor audits environment mutations.
type EnvironmentInterceptor struct {
	next   service.EnvironmentProvider
	finder Finder[model.Environment]
	log    *Log
}

var _ service.EnvironmentProvider = (*EnvironmentInterceptor)(nil)

func NewEnvironmentInterceptor(next service.EnvironmentProvider, finder Finder[model.Environment], log *Log) *EnvironmentInterceptor {
	return &EnvironmentInterceptor{next: next, finder: finder, log: log}
}

func (i *EnvironmentInterceptor) ListEnvironments(ctx context.Context) ([]model.Environment, error) {
	return i.next.ListEnvironments(ctx)
}

func (i *EnvironmentInterceptor) GetEnvironment(ctx context.Context, id uint64) (*model.Environment, error) {
	return i.next.GetEnvironment(ctx, id)
}

func (i *EnvironmentInterceptor) EnvironmentFeatureCounts(ctx context.Context, id uint64) (model.FeatureCounts, error) {
	return i.next.EnvironmentFeatureCounts(ctx, id)
}

func (i *EnvironmentInterceptor) CreateEnvironment(ctx context.Context, name string) (*model.Environment, error) {
	env, err := i.next.CreateEnvironment(ctx, name)
	if err != nil {
		return nil, err
	}
	i.log.LogCreate(ctx, model.EntityEnvironment, env.ID, env.Name, env)
	return env, nil
}

func (i *EnvironmentInterceptor) UpdateEnvironment(ctx context.Context, id uint64, name string) (*model.Environment, error) {
	before := snapshot(ctx, i.finder, model.EntityEnvironment, id)

	env, err := i.next.UpdateEnvironment(ctx, id, name)
	if err != nil {
		return nil, err
	}
	if before != nil {
		i.log.LogUpdate(ctx, model.EntityEnvironment, env.ID, env.Name, before, env)
	}
	return env, nil
}

func (i *EnvironmentInterceptor) DeleteEnvironment(ctx context.Context, id uint64) error {
	before := snapshot(ctx, i.finder, model.EntityEnvironment, id)

	if err := i.next.DeleteEnvironment(ctx, id); err != nil {
		return err
	}
	if before != nil {
		i.log.LogDelete(ctx, model.EntityEnvironment, before.ID, before.Name, before)
	}
	return nil
}
