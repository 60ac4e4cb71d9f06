// Package synclog keeps the bounded activity log shown to every client.
package synclog

import (
	"time"

	"github.com/Ezyrone/TP-Final-2/pkg/protocol"
)

// DefaultCapacity is the number of entries kept by the hub.
const DefaultCapacity = 50

// Ring is a fixed-capacity circular buffer of log entries; appending to a
// full ring evicts the oldest entry. Ring is not safe for concurrent use.
type Ring struct {
	entries []protocol.LogEntry
	start   int
	size    int
}

// NewRing creates a ring holding at most capacity entries.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{entries: make([]protocol.LogEntry, capacity)}
}

// Append adds an entry stamped at ts and returns it.
func (r *Ring) Append(message string, ts time.Time) protocol.LogEntry {
	entry := protocol.LogEntry{Message: message, Timestamp: ts}
	capacity := len(r.entries)
	if r.size < capacity {
		r.entries[(r.start+r.size)%capacity] = entry
		r.size++
		return entry
	}
	r.entries[r.start] = entry
	r.start = (r.start + 1) % capacity
	return entry
}

// Entries returns the entries oldest first.
func (r *Ring) Entries() []protocol.LogEntry {
	out := make([]protocol.LogEntry, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.entries[(r.start+i)%len(r.entries)]
	}
	return out
}

// Len returns the number of entries held.
func (r *Ring) Len() int { return r.size }
