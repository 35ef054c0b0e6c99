package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"sheltermail/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// tokenBucketScript implements a token bucket shared across instances.
// KEYS: tokens key, timestamp key. ARGV: rate, capacity, now, requested.
// Returns { allowed, remaining }.
var tokenBucketScript = redis.NewScript(`
local tokens_key = KEYS[1]
local ts_key = KEYS[2]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local ttl = math.ceil(capacity / rate * 2)

local last_tokens = tonumber(redis.call("get", tokens_key))
if last_tokens == nil then last_tokens = capacity end

local last_ts = tonumber(redis.call("get", ts_key))
if last_ts == nil then last_ts = now end

local delta = math.max(0, now - last_ts)
local filled = math.min(capacity, last_tokens + (delta * rate))

local allowed = 0
if filled >= requested then
    allowed = 1
    filled = filled - requested
    redis.call("set", tokens_key, filled, "EX", ttl)
    redis.call("set", ts_key, now, "EX", ttl)
end

return { allowed, filled }
`)

// localLimiters backs the fail-open path when redis is unreachable. Entries
// idle for ten minutes are dropped by a lazy sweeper.
var (
	localLimiters sync.Map
	sweepOnce     sync.Once
)

type localLimiter struct {
	limiter *rate.Limiter
	// Unix nanos; atomic because request goroutines write it while the
	// sweeper reads it.
	lastSeen atomic.Int64
}

func localLimiterFor(key string, r rate.Limit, burst int) *rate.Limiter {
	sweepOnce.Do(func() {
		go func() {
			for range time.Tick(10 * time.Minute) {
				now := time.Now().UnixNano()
				localLimiters.Range(func(k, v any) bool {
					if now-v.(*localLimiter).lastSeen.Load() > int64(10*time.Minute) {
						localLimiters.Delete(k)
					}
					return true
				})
			}
		}()
	})

	if v, ok := localLimiters.Load(key); ok {
		l := v.(*localLimiter)
		l.lastSeen.Store(time.Now().UnixNano())
		return l.limiter
	}
	l := &localLimiter{limiter: rate.NewLimiter(r, burst)}
	l.lastSeen.Store(time.Now().UnixNano())
	localLimiters.Store(key, l)
	return l.limiter
}

// RateLimitMiddleware throttles per client IP through redis, falling back to
// an in-process limiter (fail open, never fail closed) when redis is down.
func RateLimitMiddleware(rdb *redis.Client, requestsPerSecond int) gin.HandlerFunc {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	burst := requestsPerSecond

	return func(c *gin.Context) {
		ip := c.ClientIP()
		keys := []string{"ratelimit:" + ip + ":tokens", "ratelimit:" + ip + ":ts"}
		now := float64(time.Now().UnixMicro()) / 1e6

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		res, err := tokenBucketScript.Run(ctx, rdb, keys,
			float64(requestsPerSecond), float64(burst), now, 1).Result()
		if err != nil {
			logger.Warn("redis rate limit unavailable, using local fallback",
				zap.Error(err), zap.String("ip", ip))
			lim := localLimiterFor(ip, rate.Limit(requestsPerSecond), burst)
			c.Header("X-RateLimit-Limit", strconv.Itoa(requestsPerSecond))
			if !lim.Allow() {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
				return
			}
			c.Next()
			return
		}

		vals, ok := res.([]any)
		if !ok || len(vals) != 2 {
			logger.Error("unexpected rate limit script response", zap.Any("response", res))
			c.Next() // fail open on protocol error
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(requestsPerSecond))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(toInt64(vals[1]), 10))

		if toInt64(vals[0]) != 1 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func toInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case float64:
		return int64(val)
	default:
		return 0
	}
}
