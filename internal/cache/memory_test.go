package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("test")
}

type countingObserver struct {
	mu            sync.Mutex
	hits, misses  int
	invalidations map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{invalidations: map[string]int{}}
}

func (o *countingObserver) RecordHit(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits++
}

func (o *countingObserver) RecordMiss(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses++
}

func (o *countingObserver) RecordInvalidation(region string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.invalidations[region]++
}

type entry struct {
	Name    string
	Enabled bool
}

func TestMemory_GetPutContains(t *testing.T) {
	obs := newCountingObserver()
	m := NewMemory(10, time.Hour, obs)
	defer m.Close()
	ctx := context.Background()

	var got entry
	assert.False(t, m.Get(ctx, RegionFeatures, "checkout_shop_prod", &got))
	assert.False(t, m.Contains(ctx, RegionFeatures, "checkout_shop_prod"))

	m.Put(ctx, RegionFeatures, "checkout_shop_prod", &entry{Name: "checkout", Enabled: true})
	assert.True(t, m.Contains(ctx, RegionFeatures, "checkout_shop_prod"))
	require.True(t, m.Get(ctx, RegionFeatures, "checkout_shop_prod", &got))
	assert.Equal(t, entry{Name: "checkout", Enabled: true}, got)

	var gotPtr *entry
	require.True(t, m.Get(ctx, RegionFeatures, "checkout_shop_prod", &gotPtr))
	assert.Equal(t, "checkout", gotPtr.Name)

	var wrong string
	assert.False(t, m.Get(ctx, RegionFeatures, "checkout_shop_prod", &wrong))

	assert.Equal(t, 2, obs.hits)
	assert.Equal(t, 2, obs.misses)
}

func TestMemory_RegionsAreIndependent(t *testing.T) {
	m := NewMemory(10, time.Hour, nil)
	defer m.Close()
	ctx := context.Background()

	m.Put(ctx, RegionFeatures, AllFeaturesKey, []entry{{Name: "a"}})
	m.Put(ctx, RegionMetrics, DashboardKey, 7)

	m.InvalidateRegion(ctx, RegionFeatures)
	assert.False(t, m.Contains(ctx, RegionFeatures, AllFeaturesKey))
	assert.True(t, m.Contains(ctx, RegionMetrics, DashboardKey))

	m.InvalidateRegion(ctx, Regions...)
	assert.Zero(t, m.Len(RegionMetrics))
}

func TestMemory_CapacityBound(t *testing.T) {
	m := NewMemory(3, time.Hour, nil)
	defer m.Close()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		m.Put(ctx, RegionFeatures, fmt.Sprintf("k%d", i), i)
	}
	assert.Equal(t, 3, m.Len(RegionFeatures))
}

func TestMemory_ExpireAfterWrite(t *testing.T) {
	m := NewMemory(10, 30*time.Millisecond, nil)
	defer m.Close()
	ctx := context.Background()

	m.Put(ctx, RegionMetrics, DashboardKey, 1)
	assert.Eventually(t, func() bool {
		return !m.Contains(ctx, RegionMetrics, DashboardKey)
	}, time.Second, 10*time.Millisecond)
}

func TestMemory_ConcurrentInvalidation(t *testing.T) {
	m := NewMemory(1000, time.Hour, nil)
	defer m.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d_%d", w, i%20)
				m.Put(ctx, RegionFeatures, key, i)
				var v int
				m.Get(ctx, RegionFeatures, key, &v)
				if i%50 == 0 {
					m.InvalidateRegion(ctx, RegionFeatures, RegionMetrics)
				}
			}
		}(w)
	}
	wg.Wait()

	m.InvalidateRegion(ctx, RegionFeatures)
	assert.Zero(t, m.Len(RegionFeatures))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "feature:8:checkout:4:shop:4:prod", FeatureKey("checkout", "shop", "prod"))
	assert.Equal(t, "enabled:4:shop:4:prod", EnabledKey("shop", "prod"))
	assert.Equal(t, "scope:4:shop:4:prod", ScopeKey("shop", "prod"))
}

func TestKeys_Distinct(t *testing.T) {
	keys := []string{
		FeatureKey("x_y", "ns", "e"),
		FeatureKey("x", "y_ns", "e"),
		FeatureKey("x:1:y", "ns", "e"),
		FeatureKey("x", "1:y:ns", "e"),
		FeatureKey("enabled", "shop", "prod"),
		FeatureKey("scope", "shop", "prod"),
		EnabledKey("shop", "prod"),
		EnabledKey("shop_prod", ""),
		EnabledKey("shop", "_prod"),
		ScopeKey("shop", "prod"),
		ScopeKey("enabled", "shop"),
		AllFeaturesKey,
		DashboardKey,
	}
	seen := make(map[string]int, len(keys))
	for i, k := range keys {
		if j, dup := seen[k]; dup {
			t.Fatalf("keys %d and %d collide: %q", j, i, k)
		}
		seen[k] = i
	}
}
