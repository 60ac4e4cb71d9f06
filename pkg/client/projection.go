package client

import (
	"sort"
	"time"

	"github.com/Ezyrone/TP-Final-2/pkg/protocol"
)

// MaxLogs is the number of log lines a projection keeps.
const MaxLogs = 40

// Projection is the local view of the shared list, rebuilt from manager
// events. It is not safe for concurrent use.
type Projection struct {
	Items       map[string]protocol.Item
	Users       []protocol.User
	Connections int
	Logs        []protocol.LogEntry
	Metrics     protocol.Metrics
	State       State
	// Latency is the last measured round trip; zero until a pong arrives.
	Latency time.Duration
}

// NewProjection returns an empty view.
func NewProjection() *Projection {
	return &Projection{Items: make(map[string]protocol.Item)}
}

// Apply folds one manager event into the view.
func (p *Projection) Apply(ev Event, now time.Time) {
	switch e := ev.(type) {
	case StateEvent:
		p.State = e.State
	case ServerEvent:
		p.applyServer(e.Event, now)
	case SnapshotEvent:
		p.Connections = e.Snapshot.Connections
		p.Users = e.Snapshot.Users
		p.Logs = tail(e.Snapshot.Logs)
		p.Metrics = e.Snapshot.Metrics
	case NoticeEvent:
		p.pushLog(protocol.LogEntry{Message: "⚠ " + e.Message, Timestamp: now.UTC()})
	case LoggedOutEvent:
		p.Reset()
	}
}

func (p *Projection) applyServer(ev protocol.Event, now time.Time) {
	switch e := ev.(type) {
	case protocol.InitialState:
		p.Items = make(map[string]protocol.Item, len(e.Items))
		for _, item := range e.Items {
			p.Items[item.ID] = item
		}
		p.Users = e.Users
		p.Logs = tail(e.Logs)
		p.Connections = e.Connections
		p.Metrics = e.Metrics
	case protocol.ItemCreated:
		p.putItem(e.Item)
	case protocol.ItemUpdated:
		p.putItem(e.Item)
	case protocol.ItemDeleted:
		delete(p.Items, e.ID)
	case protocol.Presence:
		p.Connections = e.Connections
		p.Users = e.Users
	case protocol.MetricsUpdate:
		p.Metrics = e.Metrics
	case protocol.SyncLog:
		p.pushLog(e.Entry)
	case protocol.Pong:
		if e.EchoTimestamp > 0 {
			p.Latency = time.Duration(now.UnixMilli()-int64(e.EchoTimestamp)) * time.Millisecond
		}
	}
}

func (p *Projection) putItem(item protocol.Item) {
	if item.ID == "" {
		return
	}
	p.Items[item.ID] = item
}

func (p *Projection) pushLog(entry protocol.LogEntry) {
	p.Logs = tail(append(p.Logs, entry))
}

// Reset clears everything, as after a logout.
func (p *Projection) Reset() {
	*p = Projection{Items: make(map[string]protocol.Item)}
}

// SortedItems returns the items oldest first.
func (p *Projection) SortedItems() []protocol.Item {
	items := make([]protocol.Item, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}

func tail(logs []protocol.LogEntry) []protocol.LogEntry {
	if len(logs) <= MaxLogs {
		return logs
	}
	return append([]protocol.LogEntry(nil), logs[len(logs)-MaxLogs:]...)
}
