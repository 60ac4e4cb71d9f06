package protocol

import (
	"encoding/json"
	"fmt"
)

// Event is a decoded server to client frame.
type Event interface {
	EventType() string
}

// InitialState is sent once to a connection right after the handshake.
type InitialState struct {
	Items       []Item     `json:"items"`
	Connections int        `json:"connections"`
	Users       []User     `json:"users"`
	Logs        []LogEntry `json:"logs"`
	Metrics     Metrics    `json:"metrics"`
}

// Presence is broadcast whenever a connection opens or closes.
type Presence struct {
	Connections int    `json:"connections"`
	Users       []User `json:"users"`
}

// ItemCreated carries the new item.
type ItemCreated struct{ Item Item }

// ItemUpdated carries the item after the update.
type ItemUpdated struct{ Item Item }

// ItemDeleted carries the id of the soft-deleted item.
type ItemDeleted struct {
	ID string `json:"id"`
}

// MetricsUpdate is broadcast after every accepted mutation.
type MetricsUpdate struct{ Metrics Metrics }

// SyncLog is broadcast for every new log entry.
type SyncLog struct{ Entry LogEntry }

// Pong answers a ping on the same connection.
type Pong struct {
	EchoTimestamp   float64 `json:"echoTimestamp"`
	ServerTimestamp int64   `json:"serverTimestamp"`
}

// ErrorPayload reports a rejected frame or command.
type ErrorPayload struct {
	Message string `json:"message"`
}

func (InitialState) EventType() string  { return TypeInitialState }
func (Presence) EventType() string      { return TypePresence }
func (ItemCreated) EventType() string   { return TypeItemCreated }
func (ItemUpdated) EventType() string   { return TypeItemUpdated }
func (ItemDeleted) EventType() string   { return TypeItemDeleted }
func (MetricsUpdate) EventType() string { return TypeMetrics }
func (SyncLog) EventType() string       { return TypeSyncLog }
func (Pong) EventType() string          { return TypePong }
func (ErrorPayload) EventType() string  { return TypeError }

// WirePayload returns the value serialized as the frame payload. Item events,
// metrics and log frames carry the inner object directly.
func WirePayload(ev Event) interface{} {
	switch e := ev.(type) {
	case ItemCreated:
		return e.Item
	case ItemUpdated:
		return e.Item
	case MetricsUpdate:
		return e.Metrics
	case SyncLog:
		return e.Entry
	default:
		return ev
	}
}

// EncodeEvent builds the wire bytes for a server event.
func EncodeEvent(ev Event) ([]byte, error) {
	return Marshal(ev.EventType(), WirePayload(ev))
}

// DecodeEvent parses a server frame. Unknown frame types return an error so
// newer servers do not break older clients silently.
func DecodeEvent(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Payload) == 0 {
		env.Payload = json.RawMessage("{}")
	}

	var (
		ev  Event
		err error
	)
	switch env.Type {
	case TypeInitialState:
		var p InitialState
		err = json.Unmarshal(env.Payload, &p)
		ev = p
	case TypePresence:
		var p Presence
		err = json.Unmarshal(env.Payload, &p)
		ev = p
	case TypeItemCreated:
		var p Item
		err = json.Unmarshal(env.Payload, &p)
		ev = ItemCreated{Item: p}
	case TypeItemUpdated:
		var p Item
		err = json.Unmarshal(env.Payload, &p)
		ev = ItemUpdated{Item: p}
	case TypeItemDeleted:
		var p ItemDeleted
		err = json.Unmarshal(env.Payload, &p)
		ev = p
	case TypeMetrics:
		var p Metrics
		err = json.Unmarshal(env.Payload, &p)
		ev = MetricsUpdate{Metrics: p}
	case TypeSyncLog:
		var p LogEntry
		err = json.Unmarshal(env.Payload, &p)
		ev = SyncLog{Entry: p}
	case TypePong:
		var p Pong
		err = json.Unmarshal(env.Payload, &p)
		ev = p
	case TypeError:
		var p ErrorPayload
		err = json.Unmarshal(env.Payload, &p)
		ev = p
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return ev, nil
}
