package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPLimiter keeps one token bucket per remote address, evicting buckets that
// stay idle longer than idleTTL.
type IPLimiter struct {
	mu      sync.Mutex
	entries map[string]*ipEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
}

type ipEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewIPLimiter creates a limiter refilling rps tokens per second up to burst.
func NewIPLimiter(rps float64, burst int, idleTTL time.Duration) *IPLimiter {
	return &IPLimiter{
		entries: make(map[string]*ipEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
	}
}

// Allow consumes one token for ip.
func (l *IPLimiter) Allow(ip string) bool {
	return l.get(ip, time.Now()).Allow()
}

func (l *IPLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ent, ok := l.entries[ip]; ok {
		ent.lastSeen = now
		return ent.lim
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.entries[ip] = &ipEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup evicts idle buckets and returns how many were removed.
func (l *IPLimiter) Cleanup() int {
	cutoff := time.Now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for ip, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, ip)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked addresses.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
