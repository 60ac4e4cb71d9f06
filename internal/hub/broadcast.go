package hub

import (
	"github.com/Ezyrone/TP-Final-2/internal/observability"
	"github.com/Ezyrone/TP-Final-2/pkg/protocol"

	"go.uber.org/zap"
)

// Broadcaster owns the set of open connections and queues frames to them.
// Frames are serialized once per event. A connection whose send buffer is
// full misses the frame; it is never retried. Broadcaster is owned by the
// hub loop and is not safe for concurrent use.
type Broadcaster struct {
	clients   map[*Client]struct{}
	collector *observability.Collector
	logger    *zap.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(collector *observability.Collector, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		clients:   make(map[*Client]struct{}),
		collector: collector,
		logger:    logger,
	}
}

// Add registers an open connection.
func (b *Broadcaster) Add(c *Client) {
	b.clients[c] = struct{}{}
}

// Remove unregisters a connection and closes its send channel. It reports
// false if the connection was not registered.
func (b *Broadcaster) Remove(c *Client) bool {
	if _, ok := b.clients[c]; !ok {
		return false
	}
	delete(b.clients, c)
	close(c.send)
	return true
}

// Has reports whether c is registered.
func (b *Broadcaster) Has(c *Client) bool {
	_, ok := b.clients[c]
	return ok
}

// Len returns the number of registered connections.
func (b *Broadcaster) Len() int { return len(b.clients) }

// Publish queues ev to every registered connection.
func (b *Broadcaster) Publish(ev protocol.Event) {
	data, err := protocol.EncodeEvent(ev)
	if err != nil {
		b.logger.Error("Failed to marshal broadcast message",
			zap.String("messageType", ev.EventType()),
			zap.Error(err))
		return
	}

	sent, dropped := 0, 0
	for c := range b.clients {
		if b.enqueue(c, data) {
			sent++
		} else {
			dropped++
		}
	}

	if dropped > 0 {
		b.logger.Warn("Broadcast dropped for slow clients",
			zap.String("messageType", ev.EventType()),
			zap.Int("sent", sent),
			zap.Int("dropped", dropped))
	}
}

// SendTo queues ev to a single connection.
func (b *Broadcaster) SendTo(c *Client, ev protocol.Event) {
	if !b.Has(c) {
		return
	}
	data, err := protocol.EncodeEvent(ev)
	if err != nil {
		c.logger.Error("Failed to marshal message",
			zap.String("messageType", ev.EventType()),
			zap.Error(err))
		return
	}
	if !b.enqueue(c, data) {
		c.logger.Warn("Send buffer full, message dropped", zap.String("messageType", ev.EventType()))
	}
}

// CloseAll unregisters every connection, which makes their write pumps send
// a close frame and exit.
func (b *Broadcaster) CloseAll() {
	for c := range b.clients {
		b.Remove(c)
	}
}

func (b *Broadcaster) enqueue(c *Client, data []byte) bool {
	select {
	case c.send <- data:
		b.collector.BroadcastSent.Inc()
		return true
	default:
		b.collector.BroadcastDropped.Inc()
		return false
	}
}
