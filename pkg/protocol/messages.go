// Package protocol defines the JSON frames exchanged between the sync hub and
// its clients over the /ws socket.
//
// Every frame is an Envelope {"type": ..., "payload": {...}}. Client frames decode
// into the sealed Command union (commands.go); server frames decode into the
// Event union (events.go).
package protocol

import (
	"encoding/json"
	"time"
)

// Client to server frame types
const (
	TypeCreateItem = "create_item"
	TypeUpdateItem = "update_item"
	TypeDeleteItem = "delete_item"
	TypePing       = "ping"
)

// Server to client frame types
const (
	TypeInitialState = "initial_state"
	TypeItemCreated  = "item_created"
	TypeItemUpdated  = "item_updated"
	TypeItemDeleted  = "item_deleted"
	TypePresence     = "presence"
	TypeMetrics      = "metrics"
	TypeSyncLog      = "sync_log"
	TypePong         = "pong"
	TypeError        = "error"
)

// WebSocket close codes used by the hub
const (
	CloseNormal         = 1000
	CloseTokenMissing   = 4001
	CloseSessionInvalid = 4002
)

// Envelope is the outer shape of every frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Marshal builds the wire bytes for a frame. The payload is serialized once.
func Marshal(frameType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: frameType, Payload: raw})
}

// Item is the public shape of a list item. Deleted items are never serialized.
type Item struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	OwnerID     string    `json:"ownerId"`
	OwnerPseudo string    `json:"ownerPseudo"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// User is one presence entry.
type User struct {
	UserID      string `json:"userId"`
	Pseudo      string `json:"pseudo"`
	Connections int    `json:"connections"`
}

// LogEntry is one line of the shared activity log.
type LogEntry struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Metrics holds the process-wide counters.
type Metrics struct {
	TotalMessagesProcessed int64 `json:"totalMessagesProcessed"`
}

// Snapshot is the monitoring view of the hub, served by /api/metrics and by
// the monitoring service's /metrics.
type Snapshot struct {
	Connections int        `json:"connections"`
	Users       []User     `json:"users"`
	Logs        []LogEntry `json:"logs"`
	Metrics     Metrics    `json:"metrics"`
}

// Normalize replaces nil slices so they encode as [] rather than null.
func (s Snapshot) Normalize() Snapshot {
	if s.Users == nil {
		s.Users = []User{}
	}
	if s.Logs == nil {
		s.Logs = []LogEntry{}
	}
	return s
}
