package exchange

import (
	"context"
	"sync"
	"time"
)

// rateLimiter enforces a minimum interval between calls. The exchange
// throttles by IP, so one limiter is shared across every client instance.
type rateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        time.Time
}

func newRateLimiter(callsPerSecond int) *rateLimiter {
	return &rateLimiter{
		minInterval: time.Second / time.Duration(callsPerSecond),
	}
}

// Wait blocks until the next call is allowed or the context is done.
func (r *rateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	next := r.last.Add(r.minInterval)
	if next.Before(now) {
		next = now
	}
	r.last = next
	r.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Shared across all InfoClient instances. Conservative: 4 req/sec.
var globalLimiter = newRateLimiter(4)
