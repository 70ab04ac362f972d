package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/snapmeal/auth-service/internal/core/ports"
)

// maxTrackedKeys bounds limiter memory; when exceeded, stale windows are
// pruned on the next check.
const maxTrackedKeys = 5000

type window struct {
	start time.Time
	count int
}

// MemoryLimiter implements fixed-window counting in process memory. Counter
// state is lost on restart and not shared between instances; multi-instance
// deployments should use the Redis backend instead.
type MemoryLimiter struct {
	mu      sync.Mutex
	profile Profile
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryLimiter(profile Profile) *MemoryLimiter {
	return &MemoryLimiter{
		profile: profile,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Check counts the request against its (clientKey, class) window. Never
// returns an error: the backing store is local memory.
func (l *MemoryLimiter) Check(_ context.Context, clientKey string, class ports.EndpointClass) (ports.Decision, error) {
	policy, ok := l.profile[class]
	if !ok {
		return ports.Decision{Allowed: true}, nil
	}

	key := string(class) + ":" + clientKey
	now := l.now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= policy.Window {
		if len(l.windows) > maxTrackedKeys {
			l.prune(now)
		}
		l.windows[key] = &window{start: now, count: 1}
		return ports.Decision{Allowed: true}, nil
	}

	w.count++
	if w.count > policy.Quota {
		retryAfter := w.start.Add(policy.Window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return ports.Decision{Allowed: false, RetryAfter: retryAfter}, nil
	}
	return ports.Decision{Allowed: true}, nil
}

// prune drops windows that ended before now. Caller holds the lock.
func (l *MemoryLimiter) prune(now time.Time) {
	longest := time.Duration(0)
	for _, p := range l.profile {
		if p.Window > longest {
			longest = p.Window
		}
	}
	for key, w := range l.windows {
		if now.Sub(w.start) >= longest {
			delete(l.windows, key)
		}
	}
}
