package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snapmeal/auth-service/internal/core/ports"
)

// RedisLimiter implements fixed-window counting on Redis so that counters are
// shared across horizontally scaled instances.
// Key format: ratelimit:<class>:<client>:<window_bucket>
type RedisLimiter struct {
	client  *redis.Client
	profile Profile
	now     func() time.Time
}

func NewRedisLimiter(client *redis.Client, profile Profile) *RedisLimiter {
	return &RedisLimiter{client: client, profile: profile, now: time.Now}
}

// Check atomically increments the window counter for (clientKey, class).
// A returned error means Redis is unreachable; the caller applies the
// configured fail-open or fail-closed policy.
func (l *RedisLimiter) Check(ctx context.Context, clientKey string, class ports.EndpointClass) (ports.Decision, error) {
	policy, ok := l.profile[class]
	if !ok {
		return ports.Decision{Allowed: true}, nil
	}

	now := l.now().UTC()
	windowSecs := int64(policy.Window / time.Second)
	bucket := now.Unix() / windowSecs
	key := fmt.Sprintf("ratelimit:%s:%s:%d", class, clientKey, bucket)

	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return ports.Decision{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if n == 1 {
		// First hit in this window owns the expiry. Keep the key slightly
		// longer than the window so late reads still see it.
		if err := l.client.Expire(ctx, key, policy.Window+time.Second).Err(); err != nil {
			return ports.Decision{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	if n > int64(policy.Quota) {
		windowEnd := time.Unix((bucket+1)*windowSecs, 0).UTC()
		retryAfter := windowEnd.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return ports.Decision{Allowed: false, RetryAfter: retryAfter}, nil
	}
	return ports.Decision{Allowed: true}, nil
}
