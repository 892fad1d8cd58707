/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package ratelimit provides per-client request quotas for the webhook
// endpoint. Each client IP and each Telegram user gets its own token bucket
// sized from a requests-per-minute threshold.
//
// State lives in memory only:
//   - buckets are created on first use
//   - idle buckets are evicted by Prune
//   - a zero or negative threshold disables that dimension
package ratelimit

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an untouched bucket survives before Prune drops it.
const DefaultIdleTTL = 10 * time.Minute

// Config configures rate limiting.
type Config struct {
	// IPRequestsPerMinute is the per-client-IP budget.
	IPRequestsPerMinute int

	// UserRequestsPerMinute is the per-Telegram-user budget.
	UserRequestsPerMinute int

	// IdleTTL evicts buckets not used for this long.
	IdleTTL time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		IPRequestsPerMinute:   100,
		UserRequestsPerMinute: 20,
		IdleTTL:               DefaultIdleTTL,
	}
}

// Decision represents whether a request is allowed and why.
type Decision struct {
	Allowed bool
	Reason  string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks per-key token buckets.
type Limiter struct {
	config Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket // "ip:<addr>" or "user:<id>" → bucket
}

// NewLimiter creates a rate limiter.
func NewLimiter(cfg Config) *Limiter {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	return &Limiter{
		config:  cfg,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow checks whether a request from ip (and userID, when non-zero) is
// within quota and consumes a token from each bucket if so. A request counts
// against both buckets only when both allow it.
func (l *Limiter) Allow(ip string, userID int64) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.decide(ip, userID, l.now(), true)
}

// Peek is Allow without consuming tokens or creating buckets.
func (l *Limiter) Peek(ip string, userID int64) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.decide(ip, userID, l.now(), false)
}

// Check is Peek as an error, for use as a validator rate guard.
func (l *Limiter) Check(ip string, userID int64) error {
	return decisionErr(l.Peek(ip, userID))
}

// Commit is Allow as an error. The validator calls it once every other check
// has passed.
func (l *Limiter) Commit(ip string, userID int64) error {
	return decisionErr(l.Allow(ip, userID))
}

func decisionErr(d Decision) error {
	if !d.Allowed {
		return fmt.Errorf("%s", d.Reason)
	}
	return nil
}

// decide evaluates both dimensions. With consume unset, missing buckets are
// treated as full and nothing is written. Callers hold l.mu.
func (l *Limiter) decide(ip string, userID int64, now time.Time, consume bool) Decision {
	var ipBucket, userBucket *bucket
	if l.config.IPRequestsPerMinute > 0 && ip != "" {
		ipBucket = l.lookup("ip:"+ip, l.config.IPRequestsPerMinute, now, consume)
		if ipBucket != nil && ipBucket.limiter.TokensAt(now) < 1 {
			return Decision{
				Allowed: false,
				Reason:  fmt.Sprintf("per-ip rate limit reached for %s (max %d/min)", ip, l.config.IPRequestsPerMinute),
			}
		}
	}
	if l.config.UserRequestsPerMinute > 0 && userID != 0 {
		userBucket = l.lookup("user:"+strconv.FormatInt(userID, 10), l.config.UserRequestsPerMinute, now, consume)
		if userBucket != nil && userBucket.limiter.TokensAt(now) < 1 {
			return Decision{
				Allowed: false,
				Reason:  fmt.Sprintf("per-user rate limit reached for %d (max %d/min)", userID, l.config.UserRequestsPerMinute),
			}
		}
	}

	if !consume {
		return Decision{Allowed: true}
	}
	if ipBucket != nil {
		ipBucket.limiter.AllowN(now, 1)
	}
	if userBucket != nil {
		userBucket.limiter.AllowN(now, 1)
	}
	return Decision{Allowed: true}
}

// Prune drops buckets idle longer than the configured TTL and returns how
// many were removed.
func (l *Limiter) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.config.IdleTTL)
	removed := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stats returns current limiter state (for metrics/status).
type Stats struct {
	IPBuckets   int
	UserBuckets int
}

// GetStats returns current limiter statistics.
func (l *Limiter) GetStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s Stats
	for key := range l.buckets {
		if len(key) > 3 && key[:3] == "ip:" {
			s.IPBuckets++
		} else {
			s.UserBuckets++
		}
	}
	return s
}

// lookup returns the bucket for key. With create set, a missing bucket is
// made with a full burst of perMinute tokens and the key is marked as used;
// otherwise a missing bucket yields nil. Callers hold l.mu.
func (l *Limiter) lookup(key string, perMinute int, now time.Time, create bool) *bucket {
	b, ok := l.buckets[key]
	if !create {
		return b
	}
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b
}
