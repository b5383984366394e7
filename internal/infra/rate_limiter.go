package infra

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultMinInterval is the spacing applied to sources without an explicit interval
const DefaultMinInterval = 1500 * time.Millisecond

// RateLimiter enforces a minimum interval between calls to the same source.
// One instance is shared by every adapter in the process.
type RateLimiter struct {
	mu        sync.Mutex
	fallback  time.Duration
	intervals map[string]time.Duration
	next      map[string]time.Time
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter whose sources default to interval
func NewRateLimiter(interval time.Duration) *RateLimiter {
	if interval < 0 {
		interval = 0
	}
	return &RateLimiter{
		fallback:  interval,
		intervals: make(map[string]time.Duration),
		next:      make(map[string]time.Time),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// SetInterval overrides the spacing of one source
func (r *RateLimiter) SetInterval(source string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intervals[source] = d
}

// WaitIfNeeded blocks until source may be called again. The slot is reserved
// under the lock before sleeping, so two concurrent callers never share one
// expired window. A cancelled wait still consumes its slot. A nil limiter
// never waits.
func (r *RateLimiter) WaitIfNeeded(ctx context.Context, source string) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	interval, ok := r.intervals[source]
	if !ok {
		interval = r.fallback
	}
	now := r.now()
	slot := now
	if next, ok := r.next[source]; ok && next.After(now) {
		slot = next
	}
	r.next[source] = slot.Add(interval)
	r.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return nil
	}
	slog.Debug("Rate limit wait", slog.String("source", source), slog.Duration("wait", wait))
	return r.sleep(ctx, wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
