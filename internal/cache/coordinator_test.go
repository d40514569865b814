package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type fakeBus struct {
	mu         sync.Mutex
	published  []repository.Invalidation
	publishErr error
	ch         chan clientv3.WatchResponse
}

func (b *fakeBus) Publish(ctx context.Context, inv repository.Invalidation) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if b.publishErr != nil {
		return 0, b.publishErr
	}
	b.published = append(b.published, inv)
	return int64(len(b.published)), nil
}

func (b *fakeBus) Watch(context.Context) clientv3.WatchChan {
	return b.ch
}

func (b *fakeBus) Decode(value []byte) (repository.Invalidation, error) {
	return repository.NewInvalidationRepository(nil, "").Decode(value)
}

func putEvent(t *testing.T, inv repository.Invalidation) clientv3.WatchResponse {
	t.Helper()
	raw, err := json.Marshal(inv)
	require.NoError(t, err)
	return clientv3.WatchResponse{Events: []*clientv3.Event{{
		Type: mvccpb.PUT,
		Kv:   &mvccpb.KeyValue{Key: []byte("/togglr/cache/invalidate/" + inv.Region), Value: raw},
	}}}
}

func TestCoordinator_PublishesLocalInvalidations(t *testing.T) {
	local := NewMemory(10, time.Hour, nil)
	defer local.Close()
	bus := &fakeBus{}
	c := NewCoordinator(local, bus, "node-a")
	ctx := context.Background()

	c.Put(ctx, RegionFeatures, "k", 1)
	c.InvalidateRegion(ctx, RegionFeatures, RegionMetrics)

	assert.False(t, c.Contains(ctx, RegionFeatures, "k"))
	require.Len(t, bus.published, 2)
	assert.Equal(t, RegionFeatures, bus.published[0].Region)
	assert.Equal(t, "node-a", bus.published[1].Instance)
}

func TestCoordinator_PublishesAfterCallerCancel(t *testing.T) {
	local := NewMemory(10, time.Hour, nil)
	defer local.Close()
	bus := &fakeBus{}
	c := NewCoordinator(local, bus, "node-a")

	ctx, cancel := context.WithCancel(context.Background())
	c.Put(ctx, RegionFeatures, "k", 1)
	cancel()

	c.InvalidateRegion(ctx, RegionFeatures)
	assert.False(t, local.Contains(context.Background(), RegionFeatures, "k"))
	require.Len(t, bus.published, 1)
	assert.Equal(t, RegionFeatures, bus.published[0].Region)
}

func TestCoordinator_PublishFailureStillInvalidatesLocally(t *testing.T) {
	local := NewMemory(10, time.Hour, nil)
	defer local.Close()
	c := NewCoordinator(local, &fakeBus{publishErr: errors.New("etcd down")}, "node-a")
	ctx := context.Background()

	c.Put(ctx, RegionMetrics, DashboardKey, 3)
	c.InvalidateRegion(ctx, RegionMetrics)
	assert.False(t, c.Contains(ctx, RegionMetrics, DashboardKey))
}

func TestCoordinator_AppliesRemoteInvalidations(t *testing.T) {
	local := NewMemory(10, time.Hour, nil)
	defer local.Close()
	bus := &fakeBus{ch: make(chan clientv3.WatchResponse, 2)}
	c := NewCoordinator(local, bus, "node-a")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.Put(ctx, RegionFeatures, "own", 1)
	c.Put(ctx, RegionMetrics, DashboardKey, 1)

	bus.ch <- putEvent(t, repository.Invalidation{Region: RegionFeatures, Instance: "node-a"})
	bus.ch <- putEvent(t, repository.Invalidation{Region: RegionMetrics, Instance: "node-b"})

	go c.Run(ctx)

	assert.Eventually(t, func() bool {
		return !local.Contains(ctx, RegionMetrics, DashboardKey)
	}, time.Second, 10*time.Millisecond)
	assert.True(t, local.Contains(ctx, RegionFeatures, "own"))
}
