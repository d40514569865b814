package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/cache"
	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
)

func TestCreateFeature_FindOrCreatesScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	feature, err := f.featureSvc.CreateFeature(ctx, CreateFeatureInput{
		Name:        "checkout",
		Namespace:   "shop",
		Environment: "prod",
		Enabled:     true,
		Metadata:    datatypes.JSON(`{"owner":"payments"}`),
	})
	require.NoError(t, err)
	assert.NotZero(t, feature.ID)
	assert.Equal(t, "shop", feature.Namespace.Name)
	assert.Equal(t, "prod", feature.Environment.Name)
	assert.Equal(t, 1, f.store.invalidationCount())

	second := f.createFeature(t, "search", "shop", "prod", false)
	assert.Equal(t, feature.NamespaceID, second.NamespaceID)

	total, err := f.namespaces.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestCreateFeature_DuplicateIsConstraintViolation(t *testing.T) {
	f := newFixture(t)
	f.createFeature(t, "checkout", "shop", "prod", true)
	before := f.store.invalidationCount()

	_, err := f.featureSvc.CreateFeature(context.Background(), CreateFeatureInput{
		Name: "checkout", Namespace: "shop", Environment: "prod",
	})
	assert.ErrorIs(t, err, ErrConstraintViolation)
	assert.Equal(t, before, f.store.invalidationCount())
}

func TestGetFeature_ReadThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createFeature(t, "checkout", "shop", "prod", true)
	key := cache.FeatureKey("checkout", "shop", "prod")

	assert.False(t, f.store.Contains(ctx, cache.RegionFeatures, key))
	got, err := f.featureSvc.GetFeature(ctx, "checkout", "shop", "prod")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, f.store.Contains(ctx, cache.RegionFeatures, key))

	// Served from the cache even when the row vanishes behind its back.
	require.NoError(t, f.features.DeleteByID(ctx, created.ID))
	again, err := f.featureSvc.GetFeature(ctx, "checkout", "shop", "prod")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
}

func TestGetFeature_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createFeature(t, "checkout", "shop", "prod", true)

	_, err := f.featureSvc.GetFeature(ctx, "missing", "shop", "prod")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, f.store.Contains(ctx, cache.RegionFeatures, cache.FeatureKey("missing", "shop", "prod")))

	_, err = f.featureSvc.GetFeature(ctx, "checkout", "nope", "prod")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.featureSvc.GetEnabledFeatures(ctx, "shop", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateFeature_InvalidatesBothRegions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createFeature(t, "checkout", "shop", "prod", true)

	_, err := f.featureSvc.GetFeature(ctx, "checkout", "shop", "prod")
	require.NoError(t, err)
	_, err = f.metricsSvc.Dashboard(ctx)
	require.NoError(t, err)

	disabled := false
	updated, err := f.featureSvc.UpdateFeature(ctx, created.ID, UpdateFeatureInput{Enabled: &disabled})
	require.NoError(t, err)
	assert.False(t, updated.Enabled)
	assert.Equal(t, "shop", updated.Namespace.Name)

	assert.False(t, f.store.Contains(ctx, cache.RegionFeatures, cache.FeatureKey("checkout", "shop", "prod")))
	assert.False(t, f.store.Contains(ctx, cache.RegionMetrics, cache.DashboardKey))
	assert.Equal(t, cache.Regions, f.store.invalidations[len(f.store.invalidations)-1])

	got, err := f.featureSvc.GetFeature(ctx, "checkout", "shop", "prod")
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func TestUpdateFeature_PartialAndMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createFeature(t, "checkout", "shop", "prod", true)

	updated, err := f.featureSvc.UpdateFeature(ctx, created.ID, UpdateFeatureInput{
		Metadata: datatypes.JSON(`{"rollout":50}`),
	})
	require.NoError(t, err)
	assert.True(t, updated.Enabled)
	assert.JSONEq(t, `{"rollout":50}`, string(updated.Metadata))

	before := f.store.invalidationCount()
	_, err = f.featureSvc.UpdateFeature(ctx, 9999, UpdateFeatureInput{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, f.store.invalidationCount())
}

func TestDeleteFeature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createFeature(t, "checkout", "shop", "prod", true)

	require.NoError(t, f.featureSvc.DeleteFeature(ctx, created.ID))
	_, err := f.featureSvc.GetFeature(ctx, "checkout", "shop", "prod")
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.featureSvc.DeleteFeature(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createFeature(t, "a", "shop", "prod", true)
	f.createFeature(t, "b", "shop", "prod", false)
	f.createFeature(t, "c", "shop", "dev", true)

	enabled, err := f.featureSvc.GetEnabledFeatures(ctx, "shop", "prod")
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "a", enabled[0].Name)
	assert.True(t, f.store.Contains(ctx, cache.RegionFeatures, cache.EnabledKey("shop", "prod")))

	scoped, err := f.featureSvc.GetFeaturesByScope(ctx, "shop", "prod")
	require.NoError(t, err)
	assert.Len(t, scoped, 2)
	assert.True(t, f.store.Contains(ctx, cache.RegionFeatures, cache.ScopeKey("shop", "prod")))

	all, err := f.featureSvc.GetAllFeatures(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.True(t, f.store.Contains(ctx, cache.RegionFeatures, cache.AllFeaturesKey))
}

func TestReadThrough_CollapsesConcurrentMisses(t *testing.T) {
	mem := cache.NewMemory(10, 0, nil)
	defer mem.Close()
	var group singleflight.Group
	var loads atomic.Int32
	release := make(chan struct{})

	load := func(context.Context) (*model.Dashboard, error) {
		loads.Add(1)
		<-release
		return &model.Dashboard{TotalFeatures: 3}, nil
	}

	var wg sync.WaitGroup
	results := make([]*model.Dashboard, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := readThrough(context.Background(), mem, &group, cache.RegionMetrics, cache.DashboardKey, load)
			assert.NoError(t, err)
			results[i] = d
		}(i)
	}
	assert.Eventually(t, func() bool { return loads.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, loads.Load())
	for _, d := range results {
		require.NotNil(t, d)
		assert.EqualValues(t, 3, d.TotalFeatures)
	}
	assert.True(t, mem.Contains(context.Background(), cache.RegionMetrics, cache.DashboardKey))
}

func TestReadThrough_ErrorsAreNotCached(t *testing.T) {
	mem := cache.NewMemory(10, 0, nil)
	defer mem.Close()
	var group singleflight.Group

	_, err := readThrough(context.Background(), mem, &group, cache.RegionFeatures, "k", func(context.Context) ([]model.Feature, error) {
		return nil, repository.ErrConstraintViolation
	})
	assert.Error(t, err)
	assert.False(t, mem.Contains(context.Background(), cache.RegionFeatures, "k"))
}
