package infrastructure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateLimiterBurstAndRefill(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	rl := NewMessageRateLimiter(2, 3)
	rl.now = clock.now

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("tenant_a"), "burst message %d", i)
	}
	assert.False(t, rl.Allow("tenant_a"))
	assert.Equal(t, 500*time.Millisecond, rl.WaitTime("tenant_a"))

	// other namespaces are unaffected
	assert.True(t, rl.Allow("tenant_b"))

	clock.advance(500 * time.Millisecond)
	assert.True(t, rl.Allow("tenant_a"))
	assert.False(t, rl.Allow("tenant_a"))

	// refill never exceeds the burst
	clock.advance(time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("tenant_a"))
	}
	assert.False(t, rl.Allow("tenant_a"))
}

func TestRateLimiterResetAndCleanup(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	rl := NewMessageRateLimiter(1, 1)
	rl.now = clock.now

	assert.True(t, rl.Allow("tenant_a"))
	assert.False(t, rl.Allow("tenant_a"))
	rl.Reset("tenant_a")
	assert.True(t, rl.Allow("tenant_a"))
	assert.Equal(t, time.Duration(0), rl.WaitTime("unknown"))

	rl.Allow("tenant_b")
	assert.Equal(t, 2, rl.GetStats()["active_namespaces"])

	clock.advance(11 * time.Minute)
	rl.cleanup()
	assert.Equal(t, 0, rl.GetStats()["active_namespaces"])
}
