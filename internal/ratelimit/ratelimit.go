// Package ratelimit provides a keyed rate limiter using the token
// bucket algorithm. The control API uses it per client address so one
// misbehaving script cannot hammer restore.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// KeyedLimiter manages per-key rate limiting.
// Each unique key gets its own independent rate limiter.
type KeyedLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a new keyed rate limiter.
// rps: requests per second allowed.
// burst: maximum burst size (tokens available immediately).
func New(rps float64, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Allow checks if a request for the given key should be allowed.
// Returns immediately without blocking.
func (kl *KeyedLimiter) Allow(key string) bool {
	return kl.getLimiter(key).Allow()
}

// getLimiter returns the limiter for a key, creating one if needed.
func (kl *KeyedLimiter) getLimiter(key string) *rate.Limiter {
	// Fast path: read lock
	kl.mu.RLock()
	limiter, exists := kl.limiters[key]
	kl.mu.RUnlock()

	if exists {
		return limiter
	}

	// Slow path: write lock to create
	kl.mu.Lock()
	defer kl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = kl.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(kl.limit, kl.burst)
	kl.limiters[key] = limiter
	return limiter
}
