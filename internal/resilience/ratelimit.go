package resilience

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter provides global and per-key rate limiting.
// Slack enforces a per-method tier limit and roughly one message per second
// per channel, so keys are channel IDs for chat.postMessage.
type RateLimiter struct {
	global   *rate.Limiter
	perKey   map[string]*keyEntry
	mu       sync.RWMutex
	keyRPS   float64
	keyBurst int
	maxKeys  int
	idleTTL  time.Duration

	closeOnce sync.Once
	cleanupCh chan struct{}
}

// keyEntry wraps a limiter with its last use (Unix nanos) for idle eviction.
type keyEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64
}

// RateLimiterConfig holds rate limiter configuration.
type RateLimiterConfig struct {
	GlobalRPS       float64       // Global requests per second
	GlobalBurst     int           // Global burst size
	KeyRPS          float64       // Per-key requests per second
	KeyBurst        int           // Per-key burst size
	MaxKeys         int           // Upper bound on tracked keys. 0 = 10000.
	IdleTTL         time.Duration // Keys unused for this long are evicted. 0 = 10m.
	CleanupInterval time.Duration // 0 = 5m.
}

// DefaultRateLimiterConfig returns sensible defaults for Slack.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GlobalRPS:       1, // Tier 3 methods allow ~50/min; stay under it
		GlobalBurst:     5,
		KeyRPS:          1, // 1 msg/s per channel
		KeyBurst:        1,
		MaxKeys:         10000,
		IdleTTL:         10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewRateLimiter creates a new rate limiter.
// Call Close to stop the cleanup goroutine.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	rl := &RateLimiter{
		global:    rate.NewLimiter(rate.Limit(cfg.GlobalRPS), cfg.GlobalBurst),
		perKey:    make(map[string]*keyEntry),
		keyRPS:    cfg.KeyRPS,
		keyBurst:  cfg.KeyBurst,
		maxKeys:   cfg.MaxKeys,
		idleTTL:   cfg.IdleTTL,
		cleanupCh: make(chan struct{}),
	}

	go rl.cleanup(cfg.CleanupInterval)

	return rl
}

// Wait blocks until both the per-key and the global limit allow.
func (r *RateLimiter) Wait(ctx context.Context, key string) error {
	if key != "" {
		if err := r.getOrCreate(key).Wait(ctx); err != nil {
			return err
		}
	}
	return r.global.Wait(ctx)
}

// Allow returns true if the request is allowed without blocking.
func (r *RateLimiter) Allow(key string) bool {
	if !r.global.Allow() {
		return false
	}
	return r.getOrCreate(key).Allow()
}

// GlobalWait waits for the global rate limit.
func (r *RateLimiter) GlobalWait(ctx context.Context) error {
	return r.global.Wait(ctx)
}

// SetGlobalLimit updates the global rate limit.
func (r *RateLimiter) SetGlobalLimit(rps float64, burst int) {
	r.global.SetLimit(rate.Limit(rps))
	r.global.SetBurst(burst)
}

// SetKeyLimit updates the per-key rate limit for new keys.
func (r *RateLimiter) SetKeyLimit(rps float64, burst int) {
	r.mu.Lock()
	r.keyRPS = rps
	r.keyBurst = burst
	r.mu.Unlock()
}

// KeyCount returns the number of tracked per-key limiters.
func (r *RateLimiter) KeyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.perKey)
}

// Close stops the cleanup goroutine. Subsequent calls are no-ops.
func (r *RateLimiter) Close() {
	r.closeOnce.Do(func() {
		close(r.cleanupCh)
	})
}

func (r *RateLimiter) getOrCreate(key string) *rate.Limiter {
	now := time.Now().UnixNano()

	r.mu.RLock()
	entry, exists := r.perKey[key]
	r.mu.RUnlock()

	if exists {
		entry.lastUsed.Store(now)
		return entry.limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if entry, exists = r.perKey[key]; exists {
		entry.lastUsed.Store(now)
		return entry.limiter
	}

	if len(r.perKey) >= r.maxKeys {
		r.evictOldestLocked(now)
	}

	entry = &keyEntry{limiter: rate.NewLimiter(rate.Limit(r.keyRPS), r.keyBurst)}
	entry.lastUsed.Store(now)
	r.perKey[key] = entry
	return entry.limiter
}

func (r *RateLimiter) evictOldestLocked(now int64) {
	var oldestKey string
	oldestTime := now
	for k, e := range r.perKey {
		if t := e.lastUsed.Load(); t < oldestTime {
			oldestTime = t
			oldestKey = k
		}
	}
	if oldestKey != "" {
		delete(r.perKey, oldestKey)
	}
}

// EvictIdle removes limiters unused for longer than the idle TTL.
func (r *RateLimiter) EvictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	threshold := time.Now().Add(-r.idleTTL).UnixNano()
	for k, e := range r.perKey {
		if e.lastUsed.Load() < threshold {
			delete(r.perKey, k)
		}
	}
}

func (r *RateLimiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.EvictIdle()
		case <-r.cleanupCh:
			return
		}
	}
}
