package api

import (
	"sync"

	"golang.org/x/time/rate"
)

// rateLimiter applies a per-session token bucket to inbound actions, so a
// runaway client cannot flood the agent loop. A zero rate disables
// limiting.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newRateLimiter(rps float64) *rateLimiter {
	burst := int(2 * rps)
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (r *rateLimiter) allow(sessionID string) bool {
	if r.rate <= 0 {
		return true
	}

	r.mu.Lock()
	limiter, ok := r.limiters[sessionID]
	if !ok {
		limiter = rate.NewLimiter(r.rate, r.burst)
		r.limiters[sessionID] = limiter
	}
	r.mu.Unlock()

	return limiter.Allow()
}

// forget drops the limiter state for a destroyed session.
func (r *rateLimiter) forget(sessionID string) {
	r.mu.Lock()
	delete(r.limiters, sessionID)
	r.mu.Unlock()
}
