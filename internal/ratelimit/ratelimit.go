package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result reports a limiter decision. RetryAfter is only meaningful when the
// request was denied.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter counts attempts per key inside a fixed window and denies once the
// threshold is crossed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter implements a fixed-window counter with INCR and EXPIRE, shared
// across all instances of the service.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

// NewRedisLimiter builds a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{client: client, prefix: prefix, max: max, window: window}
}

// Allow records one attempt for the key and reports whether it fits the window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	full := l.prefix + ":" + key
	cnt, err := l.client.Incr(ctx, full).Result()
	if err != nil {
		return Result{}, fmt.Errorf("redis incr: %w", err)
	}
	if cnt == 1 {
		l.client.Expire(ctx, full, l.window)
	}
	if cnt > int64(l.max) {
		retry := l.window
		if ttl, err := l.client.TTL(ctx, full).Result(); err == nil && ttl > 0 {
			retry = ttl
		}
		return Result{Allowed: false, RetryAfter: retry}, nil
	}
	return Result{Allowed: true}, nil
}

type memoryWindow struct {
	count int
	reset time.Time
}

// MemoryLimiter is a process-local fixed-window limiter for development and tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]memoryWindow
	max     int
	window  time.Duration
	now     func() time.Time
}

// NewMemoryLimiter builds an in-memory limiter.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{windows: make(map[string]memoryWindow), max: max, window: window, now: time.Now}
}

// WithClock overrides the internal clock, used in tests.
func (l *MemoryLimiter) WithClock(clock func() time.Time) {
	if clock != nil {
		l.now = clock
	}
}

// Allow records one attempt for the key and reports whether it fits the window.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.reset) {
		w = memoryWindow{reset: now.Add(l.window)}
	}
	w.count++
	l.windows[key] = w

	if w.count > l.max {
		return Result{Allowed: false, RetryAfter: w.reset.Sub(now)}, nil
	}
	return Result{Allowed: true}, nil
}
