// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Result describes one attempt against the limiter.
type Result struct {
	Allowed    bool
	Count      int           // attempts in the window, including this one when allowed
	RetryAfter time.Duration // zero when allowed
}

// Store keeps attempt timestamps per key. Hit drops attempts older than the
// window and, when fewer than limit remain, records one at now.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (Result, error)
}

// Limiter is a sliding-window attempt limiter. Allowed attempts are recorded
// whatever the caller does with them afterwards.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

func New(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window, now: time.Now}
}

// WithClock replaces the limiter's time source.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow records an attempt for key unless the key is over its limit.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	res, err := l.store.Hit(ctx, key, l.now(), l.limit, l.window)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit store: %w", err)
	}
	return res, nil
}

// MemoryStore keeps attempts in process memory. It is exact within one
// process and knows nothing of other instances.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	hits     int
}

// sweepEvery bounds memory held by keys that stopped sending attempts.
const sweepEvery = 1024

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[string][]time.Time)}
}

func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time, limit int, window time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits++
	if s.hits%sweepEvery == 0 {
		s.sweep(now, window)
	}

	recent := prune(s.attempts[key], now, window)
	if len(recent) >= limit {
		s.attempts[key] = recent
		return Result{
			Allowed:    false,
			Count:      len(recent),
			RetryAfter: recent[0].Add(window).Sub(now),
		}, nil
	}

	recent = append(recent, now)
	s.attempts[key] = recent
	return Result{Allowed: true, Count: len(recent)}, nil
}

func (s *MemoryStore) sweep(now time.Time, window time.Duration) {
	for key, ts := range s.attempts {
		recent := prune(ts, now, window)
		if len(recent) == 0 {
			delete(s.attempts, key)
			continue
		}
		s.attempts[key] = recent
	}
}

// Len reports how many keys are tracked.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

// prune keeps timestamps strictly inside (now-window, now]. Input is sorted.
func prune(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0:0], ts[i:]...)
}
