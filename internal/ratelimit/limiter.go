package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles tool invocations per target host so scans do not
// trip IDS thresholds or get the source IP banned.
type Limiter struct {
	global         *rate.Limiter
	perTarget      map[string]*rate.Limiter
	requestDelay   time.Duration
	burstSize      int
	lastRequestMap map[string]time.Time
	mu             sync.Mutex
}

// Config contains rate limiting configuration
type Config struct {
	// RequestsPerSecond limits the number of requests per second
	RequestsPerSecond float64

	// BurstSize allows brief bursts above the rate limit
	BurstSize int

	// MinDelay is the minimum delay between requests to the same host
	MinDelay time.Duration
}

// DefaultConfig returns sensible defaults for authorized scanning
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10.0,
		BurstSize:         5,
		MinDelay:          100 * time.Millisecond,
	}
}

// AggressiveConfig returns more aggressive (but still safe) rate limiting
func AggressiveConfig() Config {
	return Config{
		RequestsPerSecond: 20.0,
		BurstSize:         10,
		MinDelay:          50 * time.Millisecond,
	}
}

// ConservativeConfig returns very conservative rate limiting to avoid any issues
func ConservativeConfig() Config {
	return Config{
		RequestsPerSecond: 2.0,
		BurstSize:         1,
		MinDelay:          500 * time.Millisecond,
	}
}

// NewLimiter creates a new rate limiter with the given configuration
func NewLimiter(config Config) *Limiter {
	return &Limiter{
		global:         rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.BurstSize),
		perTarget:      make(map[string]*rate.Limiter),
		requestDelay:   config.MinDelay,
		burstSize:      config.BurstSize,
		lastRequestMap: make(map[string]time.Time),
	}
}

// Wait blocks until both the global limit and the target's own limit
// allow another request, then enforces the per-host minimum delay.
func (l *Limiter) Wait(ctx context.Context, target string) error {
	if err := l.global.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	targetLimiter := l.perTarget[target]
	l.mu.Unlock()

	if targetLimiter != nil {
		if err := targetLimiter.Wait(ctx); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if lastReq, exists := l.lastRequestMap[target]; exists {
		elapsed := time.Since(lastReq)
		if elapsed < l.requestDelay {
			sleepDuration := l.requestDelay - elapsed
			select {
			case <-time.After(sleepDuration):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	l.lastRequestMap[target] = time.Now()
	return nil
}

// Allow checks if a request is allowed without blocking
func (l *Limiter) Allow() bool {
	return l.global.Allow()
}

// SetLimit sets a dedicated rate limit for a single target. Targets
// without one fall through to the global limit only.
func (l *Limiter) SetLimit(target string, requestsPerSecond int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.perTarget[target] = rate.NewLimiter(rate.Limit(requestsPerSecond), l.burstSize)
}

// SetGlobalLimit updates the global rate limit dynamically
func (l *Limiter) SetGlobalLimit(requestsPerSecond float64) {
	l.global.SetLimit(rate.Limit(requestsPerSecond))
}

// Reset clears the rate limiter state (useful for testing)
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.perTarget = make(map[string]*rate.Limiter)
	l.lastRequestMap = make(map[string]time.Time)
}

// GetStats returns current rate limiter statistics
func (l *Limiter) GetStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Stats{
		TrackedHosts: len(l.lastRequestMap),
		BurstSize:    l.burstSize,
		RequestDelay: l.requestDelay,
	}
}

// Stats contains rate limiter statistics
type Stats struct {
	TrackedHosts int
	BurstSize    int
	RequestDelay time.Duration
}
