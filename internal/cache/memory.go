package cache

import (
	"context"
	"sync"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/metrics"

	"github.com/jellydator/ttlcache/v3"
)

const (
	DefaultCapacity = 1000
	DefaultTTL      = time.Hour
)

// Memory keeps one bounded ttlcache per region. Entries expire a fixed time
// after they were written; reads do not extend them.
type Memory struct {
	mu       sync.RWMutex
	regions  map[string]*ttlcache.Cache[string, any]
	capacity uint64
	ttl      time.Duration
	observer metrics.CacheObserver
}

func NewMemory(capacity uint64, ttl time.Duration, observer metrics.CacheObserver) *Memory {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if observer == nil {
		observer = metrics.Nop{}
	}
	m := &Memory{
		regions:  make(map[string]*ttlcache.Cache[string, any]),
		capacity: capacity,
		ttl:      ttl,
		observer: observer,
	}
	for _, region := range Regions {
		m.region(region)
	}
	return m
}

func (m *Memory) region(name string) *ttlcache.Cache[string, any] {
	m.mu.RLock()
	c, ok := m.regions[name]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.regions[name]; ok {
		return c
	}
	c = ttlcache.New(
		ttlcache.WithTTL[string, any](m.ttl),
		ttlcache.WithCapacity[string, any](m.capacity),
		ttlcache.WithDisableTouchOnHit[string, any](),
	)
	go c.Start()
	m.regions[name] = c
	return c
}

func (m *Memory) Get(_ context.Context, region, key string, dst any) bool {
	item := m.region(region).Get(key)
	if item == nil || !assign(dst, item.Value()) {
		m.observer.RecordMiss(region)
		return false
	}
	m.observer.RecordHit(region)
	return true
}

func (m *Memory) Contains(_ context.Context, region, key string) bool {
	return m.region(region).Has(key)
}

func (m *Memory) Put(_ context.Context, region, key string, value any) {
	m.region(region).Set(key, value, ttlcache.DefaultTTL)
}

func (m *Memory) InvalidateRegion(_ context.Context, regions ...string) {
	for _, region := range regions {
		m.region(region).DeleteAll()
		m.observer.RecordInvalidation(region)
	}
}

// Len returns the number of live entries in a region.
func (m *Memory) Len(region string) int {
	return m.region(region).Len()
}

// Close stops the expiry loops.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.regions {
		c.Stop()
	}
}
