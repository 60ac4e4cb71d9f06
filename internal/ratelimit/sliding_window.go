// Package ratelimit holds the limiters of the sync hub: a per-user sliding
// window applied to item commands and a per-IP token bucket applied to
// socket handshakes.
package ratelimit

import (
	"sync"
	"time"
)

// Defaults for item commands
const (
	DefaultWindow = 10 * time.Second
	DefaultLimit  = 15
)

// SlidingWindow counts actions per key over a trailing window. Every call is
// recorded, including rejected ones, so a client hammering the hub stays
// limited until it pauses for a full window.
type SlidingWindow struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *SlidingWindow) { l.now = now }
}

// NewSlidingWindow creates a limiter allowing limit actions per window.
func NewSlidingWindow(limit int, window time.Duration, opts ...Option) *SlidingWindow {
	l := &SlidingWindow{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records an action for key and reports whether it is within the limit.
func (l *SlidingWindow) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kept := l.windows[key][:0]
	for _, ts := range l.windows[key] {
		if now.Sub(ts) < l.window {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	l.windows[key] = kept

	return len(kept) <= l.limit
}

// Reset forgets every recorded action for key.
func (l *SlidingWindow) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.windows, key)
}

// Prune drops keys whose last action is older than the window.
func (l *SlidingWindow) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, stamps := range l.windows {
		if len(stamps) == 0 || now.Sub(stamps[len(stamps)-1]) >= l.window {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}
