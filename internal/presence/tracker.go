// Package presence counts live connections per user.
package presence

import (
	"sort"

	"github.com/Ezyrone/TP-Final-2/pkg/protocol"
)

// Record is the presence entry of one user.
type Record struct {
	UserID      string
	Pseudo      string
	Connections int
}

// Tracker ref-counts connections per user. A user is listed only while at
// least one of their connections is open. Tracker is not safe for concurrent
// use; the hub loop owns it.
type Tracker struct {
	records map[string]*Record
	total   int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]*Record)}
}

// Add counts a new connection for userID. The pseudo of the latest connection wins.
func (t *Tracker) Add(userID, pseudo string) {
	rec, ok := t.records[userID]
	if !ok {
		rec = &Record{UserID: userID}
		t.records[userID] = rec
	}
	rec.Pseudo = pseudo
	rec.Connections++
	t.total++
}

// Remove uncounts one connection of userID. Unknown users are ignored so the
// count never goes negative.
func (t *Tracker) Remove(userID string) {
	rec, ok := t.records[userID]
	if !ok {
		return
	}
	rec.Connections--
	t.total--
	if rec.Connections <= 0 {
		delete(t.records, userID)
	}
}

// Snapshot returns the total connection count and the records sorted by pseudo.
func (t *Tracker) Snapshot() (int, []Record) {
	out := make([]Record, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pseudo == out[j].Pseudo {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Pseudo < out[j].Pseudo
	})
	return t.total, out
}

// Users converts records to their wire shape.
func Users(records []Record) []protocol.User {
	users := make([]protocol.User, 0, len(records))
	for _, r := range records {
		users = append(users, protocol.User{UserID: r.UserID, Pseudo: r.Pseudo, Connections: r.Connections})
	}
	return users
}
