package middlewares

import (
	"testing"
	"time"
)

func TestRateLimiterRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(2, 3)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should pass within burst", i)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("burst exhausted")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("buckets are per key")
	}

	now = now.Add(500 * time.Millisecond)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("half a second refills one token at 2/s")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("only one token refilled")
	}
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	rl.Allow("a")
	now = now.Add(2 * idleBucketTTL)
	rl.Allow("b")
	if _, ok := rl.buckets["a"]; ok {
		t.Fatal("idle bucket not swept")
	}
}
