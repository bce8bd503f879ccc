package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/observability/metrics"
	"github.com/frahmantamala/work-permit/internal/transport"
	"github.com/redis/go-redis/v9"
)

// tokenBucket refills continuously at rate tokens per second up to capacity.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_ms')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil or last == nil then
  tokens = capacity
  last = now_ms
end

local elapsed = math.max(0, now_ms - last)
tokens = math.min(capacity, tokens + (elapsed / 1000.0) * rate)

local allowed = 0
local retry_ms = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  retry_ms = math.ceil(((1 - tokens) / rate) * 1000)
end

redis.call('HSET', key, 'tokens', tokens, 'last_ms', now_ms)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, math.floor(tokens), retry_ms }
`)

// RateLimit limits requests per client IP with a token bucket kept in redis.
// A nil client or a disabled config lets everything through, as do redis
// errors.
func RateLimit(cfg internal.RateLimitConfig, rdb redis.Scripter, prefix string, lg *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled || rdb == nil || cfg.Rate <= 0 || cfg.Capacity <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	base := transport.NewBaseHandler(lg)
	ttl := int64(math.Ceil(float64(cfg.Capacity)/cfg.Rate)) + 1

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:" + prefix + ":" + clientIP(r)
			vals, err := tokenBucket.Run(r.Context(), rdb, []string{key},
				time.Now().UnixMilli(), cfg.Capacity, cfg.Rate, ttl).Int64Slice()
			if err != nil || len(vals) != 3 {
				lg.Warn("rate limiter unavailable, allowing request", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))

			if vals[0] != 1 {
				secs := int64(math.Ceil(float64(vals[2]) / 1000))
				w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
				metrics.RateLimitedTotal.Inc()
				base.WriteAppError(w, internal.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}
