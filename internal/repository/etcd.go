package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

var ErrInvalidationMalformed = errors.New("malformed invalidation event")

type EtcdInterface interface {
	clientv3.KV
	clientv3.Watcher
	Close() error
}

// Invalidation is the payload written under <prefix><region> whenever an
// instance clears a cache region.
type Invalidation struct {
	Region   string    `json:"region"`
	Instance string    `json:"instance"`
	IssuedAt time.Time `json:"issued_at"`
}

// InvalidationRepository carries cache invalidations between instances
// through etcd keys.
type InvalidationRepository struct {
	client EtcdInterface
	prefix string
}

func NewInvalidationRepository(client EtcdInterface, prefix string) *InvalidationRepository {
	return &InvalidationRepository{
		client: client,
		prefix: prefix,
	}
}

func (r *InvalidationRepository) Prefix() string {
	return r.prefix
}

// Publish writes the invalidation and returns the etcd revision it landed at.
func (r *InvalidationRepository) Publish(ctx context.Context, inv Invalidation) (int64, error) {
	payload, err := json.Marshal(inv)
	if err != nil {
		return 0, err
	}
	resp, err := r.client.Put(ctx, r.prefix+inv.Region, string(payload))
	if err != nil {
		return 0, err
	}
	return resp.Header.Revision, nil
}

// Watch streams every invalidation written under the prefix.
func (r *InvalidationRepository) Watch(ctx context.Context) clientv3.WatchChan {
	return r.client.Watch(ctx, r.prefix, clientv3.WithPrefix())
}

// Decode parses a watched value back into an Invalidation.
func (r *InvalidationRepository) Decode(value []byte) (Invalidation, error) {
	var inv Invalidation
	if err := json.Unmarshal(value, &inv); err != nil {
		return inv, errors.Join(ErrInvalidationMalformed, err)
	}
	if inv.Region == "" {
		return inv, ErrInvalidationMalformed
	}
	return inv, nil
}

func (r *InvalidationRepository) Health(ctx context.Context) error {
	_, err := r.client.Get(ctx, r.prefix+"health_check")
	return err
}
