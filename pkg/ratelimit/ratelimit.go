package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a simple token-bucket rate limiter.
type TokenBucket struct {
	capacity   int
	tokens     int
	refillRate int // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	tokensToAdd := int(elapsed.Seconds()) * tb.refillRate
	if tokensToAdd > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+tokensToAdd)
		tb.lastRefill = now
	}
}

// Allow reports whether one request may proceed now.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// KeyedLimiter keeps an independent bucket per key (e.g. client IP).
// Idle buckets are dropped after idleTTL to bound memory.
type KeyedLimiter struct {
	capacity   int
	refillRate int
	idleTTL    time.Duration

	mu      sync.Mutex
	buckets map[string]*keyedBucket
}

type keyedBucket struct {
	bucket   *TokenBucket
	lastSeen time.Time
}

func NewKeyedLimiter(capacity, refillRate int, idleTTL time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		capacity:   capacity,
		refillRate: refillRate,
		idleTTL:    idleTTL,
		buckets:    make(map[string]*keyedBucket),
	}
}

// Allow reports whether the request for key may proceed.
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	b, ok := kl.buckets[key]
	if !ok {
		b = &keyedBucket{bucket: NewTokenBucket(kl.capacity, kl.refillRate)}
		kl.buckets[key] = b
	}
	b.lastSeen = time.Now()
	if len(kl.buckets) > 1024 {
		kl.evictIdleLocked()
	}
	kl.mu.Unlock()

	return b.bucket.Allow()
}

func (kl *KeyedLimiter) evictIdleLocked() {
	cutoff := time.Now().Add(-kl.idleTTL)
	for k, b := range kl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(kl.buckets, k)
		}
	}
}
