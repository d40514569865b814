package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/metrics"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultRedisPrefix = "togglr:cache:"
	redisOpTimeout     = 200 * time.Millisecond
)

// Entries are stored under <prefix><region>:<generation>:<key>. Invalidating a
// region bumps its generation, so every later read resolves to a fresh
// keyspace and stale entries age out through their TTL.
//
// KEYS[1]=generation key, ARGV[1]=region prefix, ARGV[2]=key
var getScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[1]) or "0"
return redis.call("GET", ARGV[1] .. gen .. ":" .. ARGV[2])
`)

// KEYS[1]=generation key, ARGV[1]=region prefix, ARGV[2]=key
var existsScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[1]) or "0"
return redis.call("EXISTS", ARGV[1] .. gen .. ":" .. ARGV[2])
`)

// KEYS[1]=generation key, ARGV[1]=region prefix, ARGV[2]=key, ARGV[3]=value, ARGV[4]=ttl ms
var setScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[1]) or "0"
redis.call("SET", ARGV[1] .. gen .. ":" .. ARGV[2], ARGV[3], "PX", ARGV[4])
return gen
`)

// Redis is a Store shared by every instance pointing at the same server.
// Any Redis failure is treated as a miss or a no-op.
type Redis struct {
	rdb      redis.UniversalClient
	prefix   string
	ttl      time.Duration
	observer metrics.CacheObserver
}

func NewRedis(rdb redis.UniversalClient, prefix string, ttl time.Duration, observer metrics.CacheObserver) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if observer == nil {
		observer = metrics.Nop{}
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl, observer: observer}
}

func (r *Redis) genKey(region string) string {
	return r.prefix + region + ":gen"
}

func (r *Redis) regionPrefix(region string) string {
	return r.prefix + region + ":"
}

func (r *Redis) Get(ctx context.Context, region, key string, dst any) bool {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	raw, err := getScript.Run(ctx, r.rdb, []string{r.genKey(region)}, r.regionPrefix(region), key).Text()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("redis cache read failed, treating as miss",
				zap.String("region", region), zap.String("key", key), zap.Error(err))
		}
		r.observer.RecordMiss(region)
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		logger.Warn("redis cache entry undecodable, treating as miss",
			zap.String("region", region), zap.String("key", key), zap.Error(err))
		r.observer.RecordMiss(region)
		return false
	}
	r.observer.RecordHit(region)
	return true
}

func (r *Redis) Contains(ctx context.Context, region, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	n, err := existsScript.Run(ctx, r.rdb, []string{r.genKey(region)}, r.regionPrefix(region), key).Int64()
	if err != nil {
		logger.Warn("redis cache probe failed", zap.String("region", region), zap.Error(err))
		return false
	}
	return n == 1
}

func (r *Redis) Put(ctx context.Context, region, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		logger.Error("redis cache encode failed", zap.String("region", region), zap.String("key", key), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	err = setScript.Run(ctx, r.rdb, []string{r.genKey(region)},
		r.regionPrefix(region), key, string(payload), r.ttl.Milliseconds()).Err()
	if err != nil {
		logger.Warn("redis cache write failed", zap.String("region", region), zap.String("key", key), zap.Error(err))
	}
}

// InvalidateRegion bumps the generation of each region. It follows a
// committed write, so it ignores cancellation of the caller's ctx.
func (r *Redis) InvalidateRegion(ctx context.Context, regions ...string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), redisOpTimeout)
	defer cancel()

	for _, region := range regions {
		if err := r.rdb.Incr(ctx, r.genKey(region)).Err(); err != nil {
			logger.Error("redis cache invalidation failed", zap.String("region", region), zap.Error(err))
			continue
		}
		r.observer.RecordInvalidation(region)
	}
}
