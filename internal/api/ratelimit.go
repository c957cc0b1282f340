package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles chat requests per visitor. The key is the visitor
// id, not the session id, so clients cannot bypass throttling by rotating
// session ids.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitorLimiter
	limit    rate.Limit
	burst    int
}

type visitorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perMinute requests with the
// given burst, and starts the background eviction goroutine.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	rl := &RateLimiter{
		visitors: make(map[string]*visitorLimiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
	rl.startEviction()
	return rl
}

// Allow checks if a request is allowed for the given key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.visitors[key]
	if !ok {
		v = &visitorLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// startEviction periodically drops idle visitor entries so the map cannot
// grow without bound.
func (r *RateLimiter) startEviction() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-10 * time.Minute)
			r.mu.Lock()
			for key, v := range r.visitors {
				if v.lastSeen.Before(cutoff) {
					delete(r.visitors, key)
				}
			}
			r.mu.Unlock()
		}
	}()
}
