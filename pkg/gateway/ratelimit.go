package gateway

import (
	"sync"
	"time"
)

// tokenBucket is a simple per-client rate limiter gating how fast
// frames may be processed (§5 "Rate limiting").
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	max      float64
	rate     float64 // tokens per second
	lastFill time.Time
}

func newTokenBucket(max float64, ratePerSecond float64) *tokenBucket {
	return &tokenBucket{tokens: max, max: max, rate: ratePerSecond, lastFill: time.Now()}
}

// Allow reports whether one token is available, consuming it if so.
func (b *tokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := time.Since(b.lastFill).Seconds()
	b.lastFill = time.Now()
	b.tokens += elapsed * b.rate
	if b.tokens > b.max {
		b.tokens = b.max
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RateLimiter hands out one tokenBucket per client id, default sized.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	max     float64
	rate    float64
}

// DefaultRateLimiter allows bursts of 20 messages, refilling at 5/sec.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(20, 5)
}

// NewRateLimiter builds a RateLimiter with the given burst size and
// refill rate (tokens per second).
func NewRateLimiter(burst, perSecond float64) *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*tokenBucket), max: burst, rate: perSecond}
}

// Allow reports whether clientID may process another message right now.
func (r *RateLimiter) Allow(clientID string) bool {
	r.mu.Lock()
	b, ok := r.buckets[clientID]
	if !ok {
		b = newTokenBucket(r.max, r.rate)
		r.buckets[clientID] = b
	}
	r.mu.Unlock()
	return b.Allow()
}

// Forget releases clientID's bucket, e.g. once its connection closes.
func (r *RateLimiter) Forget(clientID string) {
	r.mu.Lock()
	delete(r.buckets, clientID)
	r.mu.Unlock()
}
