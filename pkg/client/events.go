package client

import (
	"time"

	"github.com/Ezyrone/TP-Final-2/pkg/protocol"
)

// Event is something the manager reports to its consumer.
type Event interface {
	clientEvent()
}

// StateEvent reports a state transition.
type StateEvent struct {
	State  State
	Reason string
	// Delay is the wait before the next attempt, set when State is Reconnecting.
	Delay time.Duration
}

// ServerEvent carries a frame received from the hub.
type ServerEvent struct {
	Event protocol.Event
}

// SnapshotEvent carries the monitoring snapshot fetched after a reconnect.
type SnapshotEvent struct {
	Snapshot protocol.Snapshot
}

// NoticeEvent carries an error message from the hub. Notices are never fatal.
type NoticeEvent struct {
	Message string
}

// LoggedOutEvent is emitted once the session is discarded.
type LoggedOutEvent struct{}

func (StateEvent) clientEvent()     {}
func (ServerEvent) clientEvent()    {}
func (SnapshotEvent) clientEvent()  {}
func (NoticeEvent) clientEvent()    {}
func (LoggedOutEvent) clientEvent() {}
