package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket of capacity one that refills at a fixed
// rate. Waiters sleep exactly until their token is due.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration // time per token, 0 means unlimited
	next     time.Time     // when the next token is available
}

// NewRateLimiter creates a RateLimiter that allows perMinute operations per
// minute. perMinute <= 0 disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	rl := &RateLimiter{}
	if perMinute > 0 {
		rl.interval = time.Minute / time.Duration(perMinute)
	}
	return rl
}

// Wait blocks until a token is available or ctx is done. A cancelled wait
// gives its reservation back.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rl.interval == 0 {
		return nil
	}

	rl.mu.Lock()
	now := time.Now()
	at := rl.next
	if at.Before(now) {
		at = now
	}
	rl.next = at.Add(rl.interval)
	rl.mu.Unlock()

	d := at.Sub(now)
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		rl.mu.Lock()
		if rl.next.Equal(at.Add(rl.interval)) {
			rl.next = at
		}
		rl.mu.Unlock()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
