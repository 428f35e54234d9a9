package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/medtext/radprep/internal/config"
)

func newTestLimiter(enabled bool, perMin, burst int) *RateLimiter {
	cfg := &config.SecurityConfig{}
	cfg.RateLimit.Enabled = enabled
	cfg.RateLimit.RequestsPerMin = perMin
	cfg.RateLimit.Burst = burst
	return NewRateLimiter(cfg)
}

func TestAllow(t *testing.T) {
	t.Run("disabled always allows", func(t *testing.T) {
		rl := newTestLimiter(false, 1, 1)
		for i := 0; i < 100; i++ {
			assert.True(t, rl.Allow("10.0.0.1"))
		}
	})

	t.Run("burst exhaustion denies", func(t *testing.T) {
		rl := newTestLimiter(true, 60, 3)
		allowed := 0
		for i := 0; i < 10; i++ {
			if rl.Allow("10.0.0.1") {
				allowed++
			}
		}
		assert.Equal(t, 3, allowed)
	})

	t.Run("clients limited independently", func(t *testing.T) {
		rl := newTestLimiter(true, 60, 1)
		assert.True(t, rl.Allow("10.0.0.1"))
		assert.False(t, rl.Allow("10.0.0.1"))
		assert.True(t, rl.Allow("10.0.0.2"))
	})

	t.Run("burst defaults to per minute budget", func(t *testing.T) {
		rl := newTestLimiter(true, 5, 0)
		allowed := 0
		for i := 0; i < 10; i++ {
			if rl.Allow("10.0.0.1") {
				allowed++
			}
		}
		assert.Equal(t, 5, allowed)
	})
}

func TestCleanupOldClients(t *testing.T) {
	rl := newTestLimiter(true, 60, 10)
	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.2")

	rl.mu.Lock()
	assert.Len(t, rl.clients, 2)
	rl.clients["10.0.0.1"].lastSeen = time.Now().Add(-2 * time.Hour)
	rl.mu.Unlock()

	rl.CleanupOldClients()

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "10.0.0.2")
}

func TestStop(t *testing.T) {
	t.Run("terminates the cleanup routine", func(t *testing.T) {
		rl := newTestLimiter(true, 60, 10)
		rl.StartCleanupRoutine()
		rl.Stop()

		select {
		case <-rl.stop:
		case <-time.After(time.Second):
			t.Fatal("stop channel not closed")
		}
	})

	t.Run("idempotent and safe without start", func(t *testing.T) {
		rl := newTestLimiter(true, 60, 10)
		rl.Stop()
		rl.Stop()
		assert.True(t, rl.Allow("10.0.0.1"))
	})
}
