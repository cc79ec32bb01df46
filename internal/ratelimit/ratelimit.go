// Package ratelimit throttles calls per key with a fixed one-minute window.
// The export worker uses it to stay inside the Google Sheets write quota.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const window = time.Minute

// Limiter counts calls per key and refuses those beyond the configured
// number per minute.
type Limiter struct {
	mu           sync.Mutex
	keys         map[string]*keyWindow
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	throttled    int64

	// Configuration
	perMinute       int
	cleanupInterval time.Duration
	now             func() time.Time
}

type keyWindow struct {
	start time.Time
	calls int
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig matches the per-user write quota of the Sheets API.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewLimiter creates a new rate limiter
func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	rl := &Limiter{
		keys:            make(map[string]*keyWindow),
		stopCleanup:     make(chan struct{}),
		perMinute:       config.RequestsPerMinute,
		cleanupInterval: config.CleanupInterval,
		now:             config.Clock,
	}
	go rl.startCleanup()
	return rl
}

// Allow consumes a slot for key if one is free in the current window.
func (rl *Limiter) Allow(key string) bool {
	return rl.reserve(key) == 0
}

// Wait blocks until a slot for key is free or ctx is done.
func (rl *Limiter) Wait(ctx context.Context, key string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delay := rl.reserve(key)
		if delay == 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve consumes a slot and returns zero, or returns how long until the
// window of key resets.
func (rl *Limiter) reserve(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, exists := rl.keys[key]
	if !exists || now.Sub(w.start) >= window {
		rl.keys[key] = &keyWindow{start: now, calls: 1}
		return 0
	}
	if w.calls < rl.perMinute {
		w.calls++
		return 0
	}
	atomic.AddInt64(&rl.throttled, 1)
	return w.start.Add(window).Sub(now)
}

// startCleanup runs periodic cleanup to remove stale key entries
func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries drops keys whose window closed long ago.
func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-10 * time.Minute)
	for key, w := range rl.keys {
		if w.start.Before(cutoff) {
			delete(rl.keys, key)
		}
	}
}

// ActiveKeys returns the number of currently tracked keys
func (rl *Limiter) ActiveKeys() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.keys)
}

// Stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	Throttled int64
	KeyCount  int64
}

// GetMetrics returns current rate limiting metrics
func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		Throttled: atomic.LoadInt64(&rl.throttled),
		KeyCount:  int64(rl.ActiveKeys()),
	}
}
