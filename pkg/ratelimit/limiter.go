// Package ratelimit throttles outgoing requests with a fixed courtesy delay
// plus a small random jitter, applied after each successful call.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter is the throttling interface consumed by the HTTP client and the
// profile loop.
type Limiter interface {
	// Wait blocks for the courtesy interval or until the context is cancelled.
	Wait(ctx context.Context) error
}

// Throttle waits Delay plus a uniform random amount in [0, Jitter) per call.
type Throttle struct {
	delay  time.Duration
	jitter time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewThrottle creates a courtesy-delay limiter.
func NewThrottle(delay, jitter time.Duration) *Throttle {
	return &Throttle{
		delay:  delay,
		jitter: jitter,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (t *Throttle) Wait(ctx context.Context) error {
	d := t.delay
	if t.jitter > 0 {
		t.mu.Lock()
		d += time.Duration(t.rng.Int63n(int64(t.jitter)))
		t.mu.Unlock()
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Nop is a limiter that never waits. For tests.
type Nop struct{}

func (Nop) Wait(ctx context.Context) error { return nil }
