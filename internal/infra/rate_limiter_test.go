package infra

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock advances only when the limiter sleeps
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFakeLimiter(interval time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(interval)
	rl.now = clock.Now
	rl.sleep = clock.Sleep
	return rl, clock
}

func TestRateLimiter_FirstCallImmediate(t *testing.T) {
	rl, clock := newFakeLimiter(1500 * time.Millisecond)

	if err := rl.WaitIfNeeded(context.Background(), "ligamagic"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clock.slept) != 0 {
		t.Errorf("first call should not wait, slept %v", clock.slept)
	}
}

func TestRateLimiter_SpacesCalls(t *testing.T) {
	rl, clock := newFakeLimiter(1500 * time.Millisecond)
	ctx := context.Background()

	rl.WaitIfNeeded(ctx, "ligamagic")
	clock.Advance(500 * time.Millisecond)
	rl.WaitIfNeeded(ctx, "ligamagic")

	if len(clock.slept) != 1 || clock.slept[0] != time.Second {
		t.Fatalf("expected one 1s wait, got %v", clock.slept)
	}

	// Well past the window: no wait
	clock.Advance(10 * time.Second)
	rl.WaitIfNeeded(ctx, "ligamagic")
	if len(clock.slept) != 1 {
		t.Errorf("expected no further wait, got %v", clock.slept)
	}
}

func TestRateLimiter_ConcurrentCallersGetDistinctSlots(t *testing.T) {
	rl, clock := newFakeLimiter(time.Second)
	ctx := context.Background()

	// Three callers at the same instant queue up 0s, 1s, 2s
	for i := 0; i < 3; i++ {
		rl.WaitIfNeeded(ctx, "scryfall")
	}

	if len(clock.slept) != 2 {
		t.Fatalf("expected 2 waits, got %v", clock.slept)
	}
	if clock.slept[0] != time.Second || clock.slept[1] != 2*time.Second {
		t.Errorf("expected waits [1s 2s], got %v", clock.slept)
	}
}

func TestRateLimiter_PerSource(t *testing.T) {
	rl, clock := newFakeLimiter(time.Second)
	ctx := context.Background()

	rl.WaitIfNeeded(ctx, "ligamagic")
	rl.WaitIfNeeded(ctx, "scryfall")
	if len(clock.slept) != 0 {
		t.Errorf("different sources must not delay each other, slept %v", clock.slept)
	}

	rl.SetInterval("scryfall", 100*time.Millisecond)
	rl.WaitIfNeeded(ctx, "scryfall")
	if len(clock.slept) != 1 || clock.slept[0] != time.Second {
		t.Errorf("pending slot keeps the old spacing, got %v", clock.slept)
	}
}

func TestRateLimiter_ContextCancelled(t *testing.T) {
	rl := NewRateLimiter(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	if err := rl.WaitIfNeeded(ctx, "ligamagic"); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	cancel()
	if err := rl.WaitIfNeeded(ctx, "ligamagic"); err == nil {
		t.Error("expected context error while waiting")
	}
}
