package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterPerKeyBurst(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 2)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst of 2 should be allowed")
	}
	if l.Allow("a") {
		t.Fatalf("third request within the same instant should be rejected")
	}
	if !l.Allow("b") {
		t.Fatalf("keys must not share buckets")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatalf("bucket should refill after one second")
	}
}

func TestLimiterSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(11 * time.Minute)
	l.Allow("fresh")

	if n := l.Sweep(); n != 1 {
		t.Fatalf("expected 1 idle bucket dropped, got %d", n)
	}
}
