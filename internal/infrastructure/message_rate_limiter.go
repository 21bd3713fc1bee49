package infrastructure

import (
	"context"
	"sync"
	"time"
)

// MessageRateLimiter implements token bucket rate limiting per namespace. It
// guards the inbound content-script channel.
type MessageRateLimiter struct {
	mu          sync.RWMutex
	buckets     map[string]*tokenBucket
	rate        float64 // tokens per second
	maxTokens   float64 // burst capacity
	idleTTL     time.Duration
	cleanupTick time.Duration
	now         func() time.Time
}

type tokenBucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewMessageRateLimiter creates a rate limiter with specified rate and burst
// rate: messages per second allowed
// burst: maximum burst capacity
func NewMessageRateLimiter(rate float64, burst int) *MessageRateLimiter {
	return &MessageRateLimiter{
		buckets:     make(map[string]*tokenBucket),
		rate:        rate,
		maxTokens:   float64(burst),
		idleTTL:     10 * time.Minute,
		cleanupTick: 5 * time.Minute,
		now:         time.Now,
	}
}

// Run removes stale buckets until ctx is done
func (rl *MessageRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.cleanupTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// Allow checks if the namespace may deliver a message (consumes 1 token if allowed)
func (rl *MessageRateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, exists := rl.buckets[key]
	now := rl.now()

	if !exists {
		rl.buckets[key] = &tokenBucket{
			tokens:     rl.maxTokens - 1,
			lastUpdate: now,
		}
		return true
	}

	// Refill tokens based on time elapsed
	elapsed := now.Sub(bucket.lastUpdate).Seconds()
	bucket.tokens += elapsed * rl.rate
	if bucket.tokens > rl.maxTokens {
		bucket.tokens = rl.maxTokens
	}
	bucket.lastUpdate = now

	if bucket.tokens >= 1 {
		bucket.tokens -= 1
		return true
	}

	return false
}

// WaitTime returns how long to wait before next message is allowed
func (rl *MessageRateLimiter) WaitTime(key string) time.Duration {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	bucket, exists := rl.buckets[key]
	if !exists {
		return 0
	}

	elapsed := rl.now().Sub(bucket.lastUpdate).Seconds()
	currentTokens := bucket.tokens + elapsed*rl.rate
	if currentTokens >= 1 {
		return 0
	}

	needed := 1 - currentTokens
	return time.Duration(needed / rl.rate * float64(time.Second))
}

// Reset removes rate limit state for a namespace
func (rl *MessageRateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, key)
}

func (rl *MessageRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.lastUpdate) > rl.idleTTL {
			delete(rl.buckets, key)
		}
	}
}

// GetStats returns rate limiter statistics
func (rl *MessageRateLimiter) GetStats() map[string]interface{} {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return map[string]interface{}{
		"active_namespaces": len(rl.buckets),
		"rate":              rl.rate,
		"burst":             rl.maxTokens,
	}
}
