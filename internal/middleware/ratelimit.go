// Package middleware provides shared HTTP middleware utilities.
package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"paydash/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RateLimiter applies a fixed-window rate limit backed by Redis.
type RateLimiter struct {
	cache  *redis.Client
	limit  int
	window time.Duration
	logger logger.Logger
}

// NewRateLimiter constructs a RateLimiter with the given limit and window.
func NewRateLimiter(cache *redis.Client, limit int, window time.Duration, log logger.Logger) *RateLimiter {
	if log == nil {
		log = logger.NewNop()
	}
	return &RateLimiter{
		cache:  cache,
		limit:  limit,
		window: window,
		logger: log,
	}
}

// Limit enforces the rate limit, keyed by client IP and, when available, the
// token subject. A Redis outage lets requests through.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.key(r)

		count, err := rl.cache.Incr(r.Context(), key).Result()
		if err != nil {
			rl.logger.Warn("Rate limiter unavailable", map[string]interface{}{"error": err.Error()})
			next.ServeHTTP(w, r)
			return
		}

		if count == 1 {
			if err := rl.cache.Expire(r.Context(), key, rl.window).Err(); err != nil {
				rl.logger.Warn("Rate limiter expire failed", map[string]interface{}{"error": err.Error(), "key": key})
			}
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
		if count > int64(rl.limit) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			jsonError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", rl.limit-int(count)))

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) key(r *http.Request) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	if id, ok := IdentityFromContext(r.Context()); ok {
		return fmt.Sprintf("ratelimit:%s:%s", ip, id.Subject)
	}
	return fmt.Sprintf("ratelimit:%s", ip)
}
