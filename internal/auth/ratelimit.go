package auth

import (
	"strings"
	"sync"
	"time"
)

// RateLimiter counts failed logins per IP+identifier within a window and
// refuses further attempts for a lockout period once the limit is hit.
// Expired records are dropped lazily on access.
type RateLimiter struct {
	mu              sync.Mutex
	attempts        map[string]*attemptRecord
	maxAttempts     int
	windowDuration  time.Duration
	lockoutDuration time.Duration
	now             func() time.Time
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// RateLimitConfig contains configuration for the rate limiter.
type RateLimitConfig struct {
	MaxAttempts     int           // default 5
	WindowDuration  time.Duration // default 15m
	LockoutDuration time.Duration // default 30m
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = 15 * time.Minute
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 30 * time.Minute
	}

	return &RateLimiter{
		attempts:        make(map[string]*attemptRecord),
		maxAttempts:     cfg.MaxAttempts,
		windowDuration:  cfg.WindowDuration,
		lockoutDuration: cfg.LockoutDuration,
		now:             time.Now,
	}
}

func makeKey(ip, identifier string) string {
	return ip + ":" + strings.ToLower(identifier)
}

// Allow reports whether an attempt may proceed and, if not, how long until
// it may.
func (rl *RateLimiter) Allow(ip, identifier string) (bool, time.Duration) {
	key := makeKey(ip, identifier)
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, exists := rl.attempts[key]
	if !exists {
		return true, 0
	}
	if now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now)
	}
	if rl.expired(record, now) {
		delete(rl.attempts, key)
	}
	return true, 0
}

// RecordFailure counts a failed attempt and reports whether it triggered a
// lockout.
func (rl *RateLimiter) RecordFailure(ip, identifier string) (bool, time.Duration) {
	key := makeKey(ip, identifier)
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, exists := rl.attempts[key]
	if !exists || rl.expired(record, now) {
		record = &attemptRecord{firstAttempt: now}
		rl.attempts[key] = record
	}

	record.count++
	if record.count >= rl.maxAttempts {
		record.lockedUntil = now.Add(rl.lockoutDuration)
		return true, rl.lockoutDuration
	}
	return false, 0
}

// RecordSuccess clears the failure record for a successful login.
func (rl *RateLimiter) RecordSuccess(ip, identifier string) {
	rl.mu.Lock()
	delete(rl.attempts, makeKey(ip, identifier))
	rl.mu.Unlock()
}

func (rl *RateLimiter) expired(record *attemptRecord, now time.Time) bool {
	return now.Sub(record.firstAttempt) > rl.windowDuration && !now.Before(record.lockedUntil)
}
