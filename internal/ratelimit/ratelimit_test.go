package ratelimit

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(cfg Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.now = clock.now
	return l, clock
}

func TestAllow_Burst(t *testing.T) {
	l, _ := newTestLimiter(Config{RequestsPerMinute: 60, BurstSize: 3})
	for i := 0; i < 3; i++ {
		if err := l.Allow("acme/ada"); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if err := l.Allow("acme/ada"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestAllow_Refill(t *testing.T) {
	l, clock := newTestLimiter(Config{RequestsPerMinute: 60, BurstSize: 1})
	if err := l.Allow("k"); err != nil {
		t.Fatal(err)
	}
	if err := l.Allow("k"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	clock.advance(time.Second)
	if err := l.Allow("k"); err != nil {
		t.Errorf("expected refilled token, got %v", err)
	}
}

func TestAllow_KeysIndependent(t *testing.T) {
	l, _ := newTestLimiter(Config{RequestsPerMinute: 1, BurstSize: 1})
	if err := l.Allow("acme/ada"); err != nil {
		t.Fatal(err)
	}
	if err := l.Allow("globex/ada"); err != nil {
		t.Errorf("other key should have its own bucket: %v", err)
	}
}

func TestAllow_Unlimited(t *testing.T) {
	l, _ := newTestLimiter(Config{})
	for i := 0; i < 1000; i++ {
		if err := l.Allow("k"); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if l.Len() != 0 {
		t.Errorf("unlimited limiter should not track keys, got %d", l.Len())
	}
}

func TestPrune(t *testing.T) {
	l, clock := newTestLimiter(Config{RequestsPerMinute: 10})
	_ = l.Allow("old")
	clock.advance(time.Hour)
	_ = l.Allow("new")

	if n := l.Prune(30 * time.Minute); n != 1 {
		t.Errorf("Prune removed %d, want 1", n)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
}
