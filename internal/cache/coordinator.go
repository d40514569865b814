package cache

import (
	"context"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/repository"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// InvalidationBus publishes and observes region invalidations across
// instances.
type InvalidationBus interface {
	Publish(ctx context.Context, inv repository.Invalidation) (int64, error)
	Watch(ctx context.Context) clientv3.WatchChan
	Decode(value []byte) (repository.Invalidation, error)
}

const (
	rewatchDelay   = time.Second
	publishTimeout = 2 * time.Second
)

// Coordinator wraps a local Store so that invalidations made on one instance
// reach every other instance sharing the bus.
type Coordinator struct {
	Store
	bus      InvalidationBus
	instance string
}

func NewCoordinator(local Store, bus InvalidationBus, instance string) *Coordinator {
	return &Coordinator{Store: local, bus: bus, instance: instance}
}

// InvalidateRegion clears the local regions, then announces them. A failed
// announcement leaves peers relying on expiry.
func (c *Coordinator) InvalidateRegion(ctx context.Context, regions ...string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	c.Store.InvalidateRegion(ctx, regions...)
	for _, region := range regions {
		_, err := c.bus.Publish(ctx, repository.Invalidation{
			Region:   region,
			Instance: c.instance,
			IssuedAt: time.Now(),
		})
		if err != nil {
			logger.Warn("cache invalidation not published",
				zap.String("region", region), zap.String("instance", c.instance), zap.Error(err))
		}
	}
}

// Run applies invalidations published by other instances until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		c.watch(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(rewatchDelay):
			logger.Warn("invalidation watch restarting", zap.String("instance", c.instance))
		}
	}
}

func (c *Coordinator) watch(ctx context.Context) {
	watchChan := c.bus.Watch(ctx)
	if watchChan == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case wresp, ok := <-watchChan:
			if !ok {
				return
			}
			if wresp.Canceled {
				logger.Warn("invalidation watch canceled", zap.Error(wresp.Err()))
				return
			}
			for _, ev := range wresp.Events {
				if ev.Type != clientv3.EventTypePut {
					continue
				}
				c.apply(ctx, ev.Kv.Value)
			}
		}
	}
}

func (c *Coordinator) apply(ctx context.Context, value []byte) {
	inv, err := c.bus.Decode(value)
	if err != nil {
		logger.Error("invalid invalidation event", zap.ByteString("raw_value", value), zap.Error(err))
		return
	}
	if inv.Instance == c.instance {
		return
	}
	c.Store.InvalidateRegion(ctx, inv.Region)
	logger.Debug("applied remote invalidation",
		zap.String("region", inv.Region), zap.String("from", inv.Instance))
}
