/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func newTestLimiter(cfg Config, now *time.Time) *Limiter {
	l := NewLimiter(cfg)
	l.now = func() time.Time { return *now }
	return l
}

func TestAllow_UnderLimits(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	d := l.Allow("10.0.0.5", 42)
	if !d.Allowed {
		t.Fatalf("expected allowed, got: %s", d.Reason)
	}
}

func TestAllow_PerIPLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(Config{IPRequestsPerMinute: 3}, &now)

	for i := 0; i < 3; i++ {
		if d := l.Allow("10.0.0.5", 0); !d.Allowed {
			t.Fatalf("request %d blocked: %s", i+1, d.Reason)
		}
	}
	d := l.Allow("10.0.0.5", 0)
	if d.Allowed {
		t.Fatal("expected blocked by per-ip limit")
	}

	// Different IP should still be allowed
	if d2 := l.Allow("10.0.0.6", 0); !d2.Allowed {
		t.Fatalf("different ip should be allowed: %s", d2.Reason)
	}

	// One token refills every 20s at 3/min
	now = now.Add(20 * time.Second)
	if d3 := l.Allow("10.0.0.5", 0); !d3.Allowed {
		t.Fatalf("expected refill after 20s: %s", d3.Reason)
	}
}

func TestAllow_PerUserLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(Config{IPRequestsPerMinute: 100, UserRequestsPerMinute: 2}, &now)

	l.Allow("10.0.0.1", 42)
	l.Allow("10.0.0.2", 42)
	d := l.Allow("10.0.0.3", 42)
	if d.Allowed {
		t.Fatal("expected blocked by per-user limit across IPs")
	}

	if d2 := l.Allow("10.0.0.3", 43); !d2.Allowed {
		t.Fatalf("other user should be allowed: %s", d2.Reason)
	}
}

func TestAllow_DeniedRequestDoesNotConsumeOtherBucket(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(Config{IPRequestsPerMinute: 5, UserRequestsPerMinute: 1}, &now)

	l.Allow("10.0.0.1", 42)
	for i := 0; i < 4; i++ {
		if d := l.Allow("10.0.0.1", 42); d.Allowed {
			t.Fatal("expected user limit to block")
		}
	}
	// The IP bucket still has 4 tokens because denied requests were not charged.
	for i := 0; i < 4; i++ {
		if d := l.Allow("10.0.0.1", 0); !d.Allowed {
			t.Fatalf("ip request %d blocked: %s", i+1, d.Reason)
		}
	}
}

func TestAllow_ZeroThresholdDisables(t *testing.T) {
	l := NewLimiter(Config{})
	for i := 0; i < 1000; i++ {
		if d := l.Allow("10.0.0.1", 42); !d.Allowed {
			t.Fatalf("request %d blocked with limits disabled: %s", i+1, d.Reason)
		}
	}
	if l.Len() != 0 {
		t.Errorf("expected no buckets when disabled, got %d", l.Len())
	}
}

func TestCheckDoesNotConsume(t *testing.T) {
	l := NewLimiter(Config{IPRequestsPerMinute: 1, UserRequestsPerMinute: 1})
	for i := 0; i < 5; i++ {
		if err := l.Check("10.0.0.1", 42); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
	}
	if l.Len() != 0 {
		t.Errorf("Check created %d buckets, want 0", l.Len())
	}

	if err := l.Commit("10.0.0.1", 42); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := l.Check("10.0.0.1", 42); err == nil {
		t.Fatal("expected check to fail once the budget is committed")
	}
	if err := l.Commit("10.0.0.1", 42); err == nil {
		t.Fatal("expected second commit to fail")
	}
}

func TestPeekReportsExhaustedUserBucket(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(Config{IPRequestsPerMinute: 10, UserRequestsPerMinute: 1}, &now)

	if d := l.Allow("10.0.0.1", 7); !d.Allowed {
		t.Fatalf("first allow: %s", d.Reason)
	}
	d := l.Peek("10.0.0.2", 7)
	if d.Allowed {
		t.Fatal("expected per-user limit to show through Peek")
	}
	if stats := l.GetStats(); stats.IPBuckets != 1 || stats.UserBuckets != 1 {
		t.Errorf("Peek should not add buckets, stats = %+v", stats)
	}
}

func TestPrune(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(Config{IPRequestsPerMinute: 10, UserRequestsPerMinute: 10, IdleTTL: time.Minute}, &now)

	l.Allow("10.0.0.1", 1)
	now = now.Add(45 * time.Second)
	l.Allow("10.0.0.2", 0)

	removed := l.Prune(now.Add(30 * time.Second))
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	stats := l.GetStats()
	if stats.IPBuckets != 1 || stats.UserBuckets != 0 {
		t.Errorf("stats = %+v, want 1 ip bucket", stats)
	}
}

func TestAllow_Concurrent(t *testing.T) {
	l := NewLimiter(Config{IPRequestsPerMinute: 50})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("10.0.0.1", 0).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed < 50 || allowed > 52 {
		t.Errorf("allowed = %d, want about 50", allowed)
	}
}
