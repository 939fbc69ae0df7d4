package ratelimit

import (
	"sync"
	"time"
)

const defaultWindow = time.Minute

var _ RateLimiter = (*SlidingWindowLimiter)(nil)

// SlidingWindowLimiter tracks delivery timestamps per endpoint inside a
// sliding window. It is process-local: replicas each keep their own view, and
// the provider's own token-level limits remain the global backstop.
type SlidingWindowLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
	byTarget map[string][]time.Time
}

func NewSlidingWindowLimiter(limitPerMinute int) *SlidingWindowLimiter {
	return newSlidingWindowLimiter(limitPerMinute, defaultWindow, time.Now)
}

func newSlidingWindowLimiter(limit int, window time.Duration, nowFn func() time.Time) *SlidingWindowLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = defaultWindow
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &SlidingWindowLimiter{
		limit:    limit,
		window:   window,
		now:      nowFn,
		byTarget: make(map[string][]time.Time),
	}
}

func (l *SlidingWindowLimiter) TryReserve(endpoint string, count int) bool {
	if count <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.pruneLocked(endpoint, now)

	if len(recent)+count > l.limit {
		return false
	}

	for i := 0; i < count; i++ {
		recent = append(recent, now)
	}
	l.byTarget[endpoint] = recent
	return true
}

func (l *SlidingWindowLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byTarget = make(map[string][]time.Time)
}

func (l *SlidingWindowLimiter) Snapshot() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	snapshot := make(map[string]int, len(l.byTarget))
	for endpoint := range l.byTarget {
		recent := l.pruneLocked(endpoint, now)
		if len(recent) > 0 {
			snapshot[endpoint] = len(recent)
		}
	}
	return snapshot
}

// pruneLocked drops timestamps that fell out of the window. Callers must hold
// the mutex.
func (l *SlidingWindowLimiter) pruneLocked(endpoint string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	stamps := l.byTarget[endpoint]

	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) == 0 {
		delete(l.byTarget, endpoint)
		return nil
	}
	l.byTarget[endpoint] = kept
	return kept
}
