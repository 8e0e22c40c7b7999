package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// RateLimitWindow is the fixed window length.
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the number of requests allowed per window.
	RateLimitMaxRequests = 120
	// RateLimitKeyPrefix is the Redis key prefix for window counters.
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs.
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked after exceeding
	// the limit.
	BlockedIPDuration = 15 * time.Minute
)

// RedisRateLimiter is a fixed-window per-IP limiter shared by every
// instance through Redis. An IP over the limit is blocked for
// BlockedIPDuration. Redis failures let the request through.
type RedisRateLimiter struct {
	client redis.Cmdable
	keyFn  func(*http.Request) string
	log    *zap.Logger
	max    int64
}

func NewRedisRateLimiter(client redis.Cmdable, keyFn func(*http.Request) string, log *zap.Logger) *RedisRateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisRateLimiter{client: client, keyFn: keyFn, log: log, max: RateLimitMaxRequests}
}

// Allow counts one request for ip and reports whether it may proceed and
// how many requests are left in the window.
func (l *RedisRateLimiter) Allow(ctx context.Context, ip string) (bool, int64, error) {
	blocked, err := l.client.Exists(ctx, BlockedIPKeyPrefix+ip).Result()
	if err != nil {
		return true, 0, err
	}
	if blocked > 0 {
		return false, 0, nil
	}

	key := RateLimitKeyPrefix + ip
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, 0, err
	}
	if count == 1 {
		// The first request opens the window.
		if err := l.client.Expire(ctx, key, RateLimitWindow).Err(); err != nil {
			return true, 0, err
		}
	}
	if count > l.max {
		if err := l.client.Set(ctx, BlockedIPKeyPrefix+ip, "1", BlockedIPDuration).Err(); err != nil {
			return false, 0, err
		}
		return false, 0, nil
	}
	return true, l.max - count, nil
}

func (l *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := l.keyFn(r)
		ok, remaining, err := l.Allow(r.Context(), ip)
		if err != nil {
			l.log.Warn("rate limit check failed", zap.String("ip", ip), zap.Error(err))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
		}
		if !ok {
			tooManyRequests(w, fmt.Sprintf("Rate limit exceeded. Try again in %d minutes.", int(BlockedIPDuration.Minutes())))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(l.max, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		next.ServeHTTP(w, r)
	})
}

func tooManyRequests(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintf(w, `{"success":false,"message":%q}`, message)
}
