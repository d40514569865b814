package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/cache"
	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/repository"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	loadTimeout       = 10 * time.Second
	invalidateTimeout = 2 * time.Second
)

// FeatureProvider is the feature API consumed by handlers. The audit
// interceptor implements it as well.
type FeatureProvider interface {
	GetFeature(ctx context.Context, name, namespace, environment string) (*model.Feature, error)
	GetEnabledFeatures(ctx context.Context, namespace, environment string) ([]model.Feature, error)
	GetFeaturesByScope(ctx context.Context, namespace, environment string) ([]model.Feature, error)
	GetAllFeatures(ctx context.Context) ([]model.Feature, error)
	CreateFeature(ctx context.Context, in CreateFeatureInput) (*model.Feature, error)
	UpdateFeature(ctx context.Context, id uint64, in UpdateFeatureInput) (*model.Feature, error)
	DeleteFeature(ctx context.Context, id uint64) error
}

type CreateFeatureInput struct {
	Name        string
	Namespace   string
	Environment string
	Enabled     bool
	Metadata    datatypes.JSON
}

// UpdateFeatureInput leaves a field untouched when it is nil.
type UpdateFeatureInput struct {
	Enabled  *bool
	Metadata datatypes.JSON
}

type FeatureService struct {
	db           *gorm.DB
	features     repository.FeatureInterface
	namespaces   repository.NamespaceInterface
	environments repository.EnvironmentInterface
	cache        cache.Store
	group        singleflight.Group
}

func NewFeatureService(db *gorm.DB, features repository.FeatureInterface, namespaces repository.NamespaceInterface, environments repository.EnvironmentInterface, store cache.Store) *FeatureService {
	return &FeatureService{
		db:           db,
		features:     features,
		namespaces:   namespaces,
		environments: environments,
		cache:        store,
	}
}

// GetFeature looks a feature up by its natural key, served from the features
// region when possible.
func (s *FeatureService) GetFeature(ctx context.Context, name, namespace, environment string) (*model.Feature, error) {
	key := cache.FeatureKey(name, namespace, environment)
	return readThrough(ctx, s.cache, &s.group, cache.RegionFeatures, key, func(ctx context.Context) (*model.Feature, error) {
		ns, env, err := s.resolveScope(ctx, namespace, environment)
		if err != nil {
			return nil, err
		}
		feature, err := s.features.FindByNaturalKey(ctx, name, ns.ID, env.ID)
		if err != nil {
			return nil, err
		}
		if feature == nil {
			return nil, fmt.Errorf("feature %q in %s/%s: %w", name, namespace, environment, ErrNotFound)
		}
		return feature, nil
	})
}

func (s *FeatureService) GetEnabledFeatures(ctx context.Context, namespace, environment string) ([]model.Feature, error) {
	return s.listScope(ctx, cache.EnabledKey(namespace, environment), namespace, environment, true)
}

func (s *FeatureService) GetFeaturesByScope(ctx context.Context, namespace, environment string) ([]model.Feature, error) {
	return s.listScope(ctx, cache.ScopeKey(namespace, environment), namespace, environment, false)
}

func (s *FeatureService) listScope(ctx context.Context, key, namespace, environment string, enabledOnly bool) ([]model.Feature, error) {
	return readThrough(ctx, s.cache, &s.group, cache.RegionFeatures, key, func(ctx context.Context) ([]model.Feature, error) {
		ns, env, err := s.resolveScope(ctx, namespace, environment)
		if err != nil {
			return nil, err
		}
		return s.features.ListByScope(ctx, ns.ID, env.ID, enabledOnly)
	})
}

func (s *FeatureService) GetAllFeatures(ctx context.Context) ([]model.Feature, error) {
	return readThrough(ctx, s.cache, &s.group, cache.RegionFeatures, cache.AllFeaturesKey, s.features.ListAll)
}

// CreateFeature stores a new feature, creating its namespace and environment
// on first use.
func (s *FeatureService) CreateFeature(ctx context.Context, in CreateFeatureInput) (*model.Feature, error) {
	var created *model.Feature
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ns, err := findOrCreateNamespace(ctx, s.namespaces.WithTx(tx), in.Namespace)
		if err != nil {
			return err
		}
		env, err := findOrCreateEnvironment(ctx, s.environments.WithTx(tx), in.Environment)
		if err != nil {
			return err
		}

		txFeatures := s.features.WithTx(tx)
		feature := &model.Feature{
			Name:          in.Name,
			NamespaceID:   ns.ID,
			EnvironmentID: env.ID,
			Enabled:       in.Enabled,
			Metadata:      in.Metadata,
		}
		if err := txFeatures.Save(ctx, feature); err != nil {
			return fmt.Errorf("create feature %q: %w", in.Name, err)
		}
		created, err = txFeatures.FindByID(ctx, feature.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidateAll(ctx, s.cache)
	logger.Info("feature created",
		zap.Uint64("id", created.ID),
		zap.String("name", created.Name),
		zap.String("namespace", in.Namespace),
		zap.String("environment", in.Environment),
		zap.Bool("enabled", created.Enabled))
	return created, nil
}

func (s *FeatureService) UpdateFeature(ctx context.Context, id uint64, in UpdateFeatureInput) (*model.Feature, error) {
	var updated *model.Feature
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txFeatures := s.features.WithTx(tx)
		feature, err := txFeatures.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if feature == nil {
			return fmt.Errorf("feature %d: %w", id, ErrNotFound)
		}

		if in.Enabled != nil {
			feature.Enabled = *in.Enabled
		}
		if in.Metadata != nil {
			feature.Metadata = in.Metadata
		}
		if err := txFeatures.Save(ctx, feature); err != nil {
			return err
		}
		updated, err = txFeatures.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidateAll(ctx, s.cache)
	return updated, nil
}

func (s *FeatureService) DeleteFeature(ctx context.Context, id uint64) error {
	feature, err := s.features.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if feature == nil {
		return fmt.Errorf("feature %d: %w", id, ErrNotFound)
	}
	if err := s.features.DeleteByID(ctx, id); err != nil {
		return err
	}

	invalidateAll(ctx, s.cache)
	logger.Info("feature deleted", zap.Uint64("id", id), zap.String("name", feature.Name))
	return nil
}

func (s *FeatureService) resolveScope(ctx context.Context, namespace, environment string) (*model.Namespace, *model.Environment, error) {
	ns, err := s.namespaces.FindByName(ctx, namespace)
	if err != nil {
		return nil, nil, err
	}
	if ns == nil {
		return nil, nil, fmt.Errorf("namespace %q: %w", namespace, ErrNotFound)
	}
	env, err := s.environments.FindByName(ctx, environment)
	if err != nil {
		return nil, nil, err
	}
	if env == nil {
		return nil, nil, fmt.Errorf("environment %q: %w", environment, ErrNotFound)
	}
	return ns, env, nil
}

// invalidateAll clears every region after a committed write. It outlives the
// request so a client disconnect cannot leave stale entries behind.
func invalidateAll(ctx context.Context, store cache.Store) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()
	store.InvalidateRegion(ctx, cache.Regions...)
}

// readThrough serves key from the cache, otherwise loads it once for all
// concurrent callers and caches the result. Errors are never cached. The
// shared load is detached from the caller that started it; each caller still
// stops waiting when its own ctx is done.
func readThrough[T any](ctx context.Context, store cache.Store, group *singleflight.Group, region, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if store.Get(ctx, region, key, &cached) {
		return cached, nil
	}

	ch := group.DoChan(region+"/"+key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		store.Put(loadCtx, region, key, value)
		return value, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
