package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisLimiterWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewRedisLimiter(client, "rl:test", 3, time.Minute)
	ctx := context.Background()

	for n := 0; n < 3; n++ {
		res, err := limiter.Allow(ctx, "+15551234567")
		if err != nil {
			t.Fatalf("allow %d: %v", n, err)
		}
		if !res.Allowed {
			t.Fatalf("attempt %d should be allowed", n)
		}
	}

	res, err := limiter.Allow(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if res.Allowed {
		t.Fatal("fourth attempt should be denied")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("expected retry-after hint, got %v", res.RetryAfter)
	}

	// A different key has its own window.
	if res, _ := limiter.Allow(ctx, "+15559990000"); !res.Allowed {
		t.Fatal("unrelated key should be allowed")
	}

	// The window resets after expiry.
	mr.FastForward(2 * time.Minute)
	if res, _ := limiter.Allow(ctx, "+15551234567"); !res.Allowed {
		t.Fatal("attempt after window reset should be allowed")
	}
}

func TestMemoryLimiterWindow(t *testing.T) {
	limiter := NewMemoryLimiter(2, time.Minute)
	now := time.Now()
	limiter.WithClock(func() time.Time { return now })
	ctx := context.Background()

	for n := 0; n < 2; n++ {
		if res, _ := limiter.Allow(ctx, "k"); !res.Allowed {
			t.Fatalf("attempt %d should be allowed", n)
		}
	}
	if res, _ := limiter.Allow(ctx, "k"); res.Allowed {
		t.Fatal("third attempt should be denied")
	}

	now = now.Add(2 * time.Minute)
	if res, _ := limiter.Allow(ctx, "k"); !res.Allowed {
		t.Fatal("attempt after reset should be allowed")
	}
}
