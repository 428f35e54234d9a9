package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/medtext/radprep/internal/config"
)

// RateLimiter enforces a per-client request budget to protect the
// preprocessing endpoints from abusive callers
type RateLimiter struct {
	config  *config.SecurityConfig
	clients map[string]*clientLimiter
	mu      sync.RWMutex

	stopOnce sync.Once
	stop     chan struct{}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	mu       sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.SecurityConfig) *RateLimiter {
	return &RateLimiter{
		config:  cfg,
		clients: make(map[string]*clientLimiter),
		stop:    make(chan struct{}),
	}
}

// Allow checks if a request from the given client IP is allowed
func (r *RateLimiter) Allow(clientIP string) bool {
	if !r.config.RateLimit.Enabled {
		return true
	}

	client := r.getClient(clientIP)

	client.mu.Lock()
	client.lastSeen = time.Now()
	client.mu.Unlock()

	return client.limiter.Allow()
}

// getClient gets or creates a limiter for a client IP
func (r *RateLimiter) getClient(clientIP string) *clientLimiter {
	r.mu.RLock()
	client, exists := r.clients[clientIP]
	r.mu.RUnlock()

	if exists {
		return client
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if client, exists := r.clients[clientIP]; exists {
		return client
	}

	perSecond := rate.Limit(float64(r.config.RateLimit.RequestsPerMin) / 60.0)
	burst := r.config.RateLimit.Burst
	if burst <= 0 {
		burst = r.config.RateLimit.RequestsPerMin
	}

	client = &clientLimiter{
		limiter:  rate.NewLimiter(perSecond, burst),
		lastSeen: time.Now(),
	}

	r.clients[clientIP] = client
	return client
}

// CleanupOldClients removes idle client limiters to prevent memory leaks
func (r *RateLimiter) CleanupOldClients() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-time.Hour)

	for ip, client := range r.clients {
		client.mu.Lock()
		if client.lastSeen.Before(cutoff) {
			delete(r.clients, ip)
		}
		client.mu.Unlock()
	}
}

// StartCleanupRoutine starts a background routine to clean up idle limiters.
// It exits when Stop is called.
func (r *RateLimiter) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.CleanupOldClients()
			case <-r.stop:
				return
			}
		}
	}()
}

// Stop terminates the cleanup routine. Safe to call more than once and
// without StartCleanupRoutine having run.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}
