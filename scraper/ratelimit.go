package scraper

import (
	"sync"
	"time"
)

// RateLimiter enforces a minimum delay between requests made by the same
// worker. State is per-worker: two different workers may fire at the
// same instant.
type RateLimiter struct {
	minDelay time.Duration

	mu   sync.Mutex
	last map[int]time.Time
}

// NewRateLimiter creates a RateLimiter with the given per-worker minimum
// delay in milliseconds.
func NewRateLimiter(minDelayMs int) *RateLimiter {
	return &RateLimiter{
		minDelay: time.Duration(minDelayMs) * time.Millisecond,
		last:     make(map[int]time.Time),
	}
}

// Wait blocks until at least minDelay has elapsed since the worker's
// previous call, then records the new timestamp. The first call for a
// worker returns immediately.
func (r *RateLimiter) Wait(workerID int) {
	r.mu.Lock()
	last, seen := r.last[workerID]
	r.mu.Unlock()

	if seen {
		if wait := r.minDelay - time.Since(last); wait > 0 {
			time.Sleep(wait)
		}
	}

	r.mu.Lock()
	r.last[workerID] = time.Now()
	r.mu.Unlock()
}
