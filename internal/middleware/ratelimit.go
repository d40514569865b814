package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/service"
	v1 "github.com/gdrocha-io/togglr-backend/pkg/api/v1"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// tokenBucketScript implements the Token Bucket algorithm.
// Input: ARGV[1]=rate, ARGV[2]=capacity, ARGV[3]=now, ARGV[4]=requested
// Output: { allowed, remaining, reset_after }
var tokenBucketScript = redis.NewScript(`
local tokens_key = KEYS[1]
local ts_key = KEYS[2]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local fill_time = capacity / rate
local ttl = math.ceil(fill_time * 2)

-- Load state
local last_tokens = tonumber(redis.call("get", tokens_key))
if last_tokens == nil then last_tokens = capacity end

local last_ts = tonumber(redis.call("get", ts_key))
if last_ts == nil then last_ts = now end

-- Refill
local delta = math.max(0, now - last_ts)
local filled_tokens = math.min(capacity, last_tokens + (delta * rate))
local allowed = 0
local remaining = filled_tokens
local reset_after = 0

if filled_tokens >= requested then
    allowed = 1
    filled_tokens = filled_tokens - requested
    remaining = filled_tokens
else
    allowed = 0
    remaining = filled_tokens
    reset_after = (requested - filled_tokens) / rate
end

if allowed == 1 then
    redis.call("set", tokens_key, filled_tokens, "EX", ttl)
    redis.call("set", ts_key, now, "EX", ttl)
end

return { allowed, remaining, reset_after }
`)

const (
	RateLimitKeyPrefix = "togglr:ratelimit:"
	defaultRPS         = 5
	redisLimitTimeout  = 100 * time.Millisecond
	localIdleTimeout   = 10 * time.Minute
)

// localLimiter backs a key while Redis is unreachable.
type localLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimiter is a per-principal token bucket kept in Redis, with an
// in-process fallback when Redis fails.
type RateLimiter struct {
	rdb   redis.Scripter
	rps   int
	burst int

	local       sync.Map
	cleanupOnce sync.Once
}

func NewRateLimiter(rdb redis.Scripter, requestsPerSecond int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = defaultRPS
	}
	return &RateLimiter{rdb: rdb, rps: requestsPerSecond, burst: requestsPerSecond}
}

// RateLimitMiddleware enforces the limit per authenticated actor, or per
// client IP for anonymous callers.
func RateLimitMiddleware(rdb redis.Scripter, requestsPerSecond int) gin.HandlerFunc {
	return NewRateLimiter(rdb, requestsPerSecond).Middleware()
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := limitKey(c)
		keyPrefix := RateLimitKeyPrefix + principal
		keys := []string{keyPrefix + ":tokens", keyPrefix + ":ts"}
		now := float64(time.Now().UnixMicro()) / 1e6

		ctx, cancel := context.WithTimeout(c.Request.Context(), redisLimitTimeout)
		defer cancel()

		result, err := tokenBucketScript.Run(ctx, l.rdb, keys, float64(l.rps), float64(l.burst), now, 1).Result()
		c.Header("X-RateLimit-Limit", strconv.Itoa(l.rps))

		if err != nil {
			logger.Warn("Redis rate limit failed, switching to local fallback",
				zap.Error(err),
				zap.String("principal", principal))

			limiter := l.localLimiter(principal)
			if !limiter.Allow() {
				c.Header("X-RateLimit-Remaining", "0")
				c.Header("X-RateLimit-Reset", "1")
				abortTooManyRequests(c)
				return
			}
			c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			c.Next()
			return
		}

		resSlice, ok := result.([]any)
		if !ok || len(resSlice) != 3 {
			logger.Error("Invalid Redis rate limit response", zap.Any("response", result))
			c.Next()
			return
		}

		allowed := helperInt(resSlice[0]) == 1
		remaining := helperFloat(resSlice[1])
		resetAfter := helperFloat(resSlice[2])

		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(remaining)))
		resetTime := time.Now().Add(time.Duration(resetAfter * float64(time.Second)))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			abortTooManyRequests(c)
			return
		}
		c.Next()
	}
}

func limitKey(c *gin.Context) string {
	actor := service.CurrentActor(c.Request.Context())
	if actor.Kind != model.ActorSystem {
		return "actor:" + actor.Name
	}
	return "ip:" + c.ClientIP()
}

func (l *RateLimiter) localLimiter(key string) *rate.Limiter {
	l.cleanupOnce.Do(func() { go l.cleanup() })

	now := time.Now().UnixNano()
	if val, ok := l.local.Load(key); ok {
		ll := val.(*localLimiter)
		ll.lastSeen.Store(now)
		return ll.limiter
	}

	ll := &localLimiter{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
	ll.lastSeen.Store(now)
	actual, _ := l.local.LoadOrStore(key, ll)
	return actual.(*localLimiter).limiter
}

func (l *RateLimiter) cleanup() {
	ticker := time.NewTicker(localIdleTimeout)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-localIdleTimeout).UnixNano()
		l.local.Range(func(key, value any) bool {
			if value.(*localLimiter).lastSeen.Load() < cutoff {
				l.local.Delete(key)
			}
			return true
		})
	}
}

func abortTooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, v1.Error{
		Error:     "TooManyRequests",
		Message:   "Too Many Requests",
		Status:    http.StatusTooManyRequests,
		Timestamp: time.Now(),
	})
}

func helperInt(v any) int64 {
	if val, ok := v.(int64); ok {
		return val
	}
	if val, ok := v.(float64); ok {
		return int64(val)
	}
	return 0
}

func helperFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	default:
		return 0
	}
}
