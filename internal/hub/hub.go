// Package hub implements the realtime synchronization hub: it authenticates
// socket connections, tracks presence, rate-limits item commands and fans
// state changes out to every connected client.
//
// A single goroutine (Hub.Run) owns all mutable state: the connection set,
// presence, the rate limiter, the activity log and the counters. Socket pumps
// and HTTP handlers talk to it through channels only.
package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"
	"github.com/Ezyrone/TP-Final-2/internal/observability"
	"github.com/Ezyrone/TP-Final-2/internal/presence"
	"github.com/Ezyrone/TP-Final-2/internal/ratelimit"
	"github.com/Ezyrone/TP-Final-2/internal/repository"
	"github.com/Ezyrone/TP-Final-2/internal/synclog"
	apperrors "github.com/Ezyrone/TP-Final-2/pkg/errors"
	"github.com/Ezyrone/TP-Final-2/pkg/protocol"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// ErrStopped is returned by calls made after the hub loop has exited.
var ErrStopped = errors.New("hub stopped")

// Reporter receives hub activity for the external monitoring service.
// Implementations must not block.
type Reporter interface {
	ReportPresence(connections int, users []protocol.User)
	ReportMessages(delta int)
	ReportLog(entry protocol.LogEntry)
}

type nopReporter struct{}

func (nopReporter) ReportPresence(int, []protocol.User) {}
func (nopReporter) ReportMessages(int)                  {}
func (nopReporter) ReportLog(protocol.LogEntry)         {}

type inboundFrame struct {
	client *Client
	data   []byte
}

// Hub maintains the live connections and the shared realtime state.
type Hub struct {
	store     repository.ItemStore
	limiter   *ratelimit.SlidingWindow
	presence  *presence.Tracker
	log       *synclog.Ring
	fanout    *Broadcaster
	metrics   protocol.Metrics
	reporter  Reporter
	collector *observability.Collector
	tracer    trace.Tracer
	logger    *zap.Logger
	now       func() time.Time

	commandTimeout time.Duration
	pruneInterval  time.Duration

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame
	snapshots  chan chan protocol.Snapshot

	started chan struct{}
	done    chan struct{}
}

// Option configures a Hub.
type Option func(*Hub)

// WithClock replaces time.Now for item timestamps, log entries and pongs.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// WithReporter forwards activity to the monitoring service.
func WithReporter(r Reporter) Option {
	return func(h *Hub) {
		if r != nil {
			h.reporter = r
		}
	}
}

// WithTracer sets the tracer used for command spans.
func WithTracer(t trace.Tracer) Option {
	return func(h *Hub) {
		if t != nil {
			h.tracer = t
		}
	}
}

// WithLogCapacity sets the size of the activity log.
func WithLogCapacity(n int) Option {
	return func(h *Hub) { h.log = synclog.NewRing(n) }
}

// WithCommandTimeout bounds the store calls made for one command.
func WithCommandTimeout(d time.Duration) Option {
	return func(h *Hub) { h.commandTimeout = d }
}

// NewHub creates a hub. Call Run to start it.
func NewHub(
	store repository.ItemStore,
	limiter *ratelimit.SlidingWindow,
	collector *observability.Collector,
	logger *zap.Logger,
	opts ...Option,
) *Hub {
	h := &Hub{
		store:          store,
		limiter:        limiter,
		presence:       presence.NewTracker(),
		log:            synclog.NewRing(synclog.DefaultCapacity),
		reporter:       nopReporter{},
		collector:      collector,
		tracer:         noop.NewTracerProvider().Tracer("hub"),
		logger:         logger,
		now:            time.Now,
		commandTimeout: 5 * time.Second,
		pruneInterval:  time.Minute,
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		inbound:        make(chan inboundFrame),
		snapshots:      make(chan chan protocol.Snapshot),
		started:        make(chan struct{}),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.fanout = NewBroadcaster(collector, logger)
	return h
}

// Run starts the hub's main event loop and blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pruneInterval)
	defer ticker.Stop()
	defer close(h.done)
	close(h.started)

	h.logger.Info("Hub started")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down", zap.Int("connections", h.fanout.Len()))
			h.fanout.CloseAll()
			return

		case client := <-h.register:
			h.connect(ctx, client)

		case client := <-h.unregister:
			h.disconnect(client)

		case frame := <-h.inbound:
			if h.fanout.Has(frame.client) {
				h.handleFrame(ctx, frame.client, frame.data)
			}

		case reply := <-h.snapshots:
			reply <- h.snapshot()

		case <-ticker.C:
			if n := h.limiter.Prune(); n > 0 {
				h.logger.Debug("Pruned idle rate limit windows", zap.Int("count", n))
			}
		}
	}
}

// Done is closed once the loop has exited.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Running reports whether the loop is started and not yet stopped.
func (h *Hub) Running() bool {
	select {
	case <-h.started:
	default:
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Register hands a new authenticated connection to the loop. The loop
// finishes the open sequence before it accepts any frame dispatched after
// Register returns.
func (h *Hub) Register(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrStopped
	}
}

// Unregister removes a connection. It is safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Dispatch passes a raw frame read from c to the loop.
func (h *Hub) Dispatch(c *Client, data []byte) error {
	select {
	case h.inbound <- inboundFrame{client: c, data: data}:
		return nil
	case <-h.done:
		return ErrStopped
	}
}

// Snapshot returns the monitoring view of the hub.
func (h *Hub) Snapshot(ctx context.Context) (protocol.Snapshot, error) {
	reply := make(chan protocol.Snapshot, 1)
	select {
	case h.snapshots <- reply:
	case <-h.done:
		return protocol.Snapshot{}, ErrStopped
	case <-ctx.Done():
		return protocol.Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return protocol.Snapshot{}, ctx.Err()
	}
}

// connect runs the open sequence: presence, initial state, presence
// broadcast, then the log entry.
func (h *Hub) connect(ctx context.Context, c *Client) {
	h.fanout.Add(c)
	h.presence.Add(c.userID, c.pseudo)
	h.collector.Connections.Inc()

	c.logger.Info("Client registered", zap.Int("connections", h.fanout.Len()))

	h.sendInitialState(ctx, c)
	h.broadcastPresence()
	h.pushLog(fmt.Sprintf("Connexion de %s", c.pseudo))
}

// disconnect runs the close sequence: presence, presence broadcast, log entry.
func (h *Hub) disconnect(c *Client) {
	if !h.fanout.Remove(c) {
		return
	}
	h.presence.Remove(c.userID)
	h.collector.Connections.Dec()

	c.logger.Info("Client unregistered", zap.Int("connections", h.fanout.Len()))

	h.broadcastPresence()
	h.pushLog(fmt.Sprintf("Déconnexion de %s", c.pseudo))
}

func (h *Hub) sendInitialState(ctx context.Context, c *Client) {
	storeCtx, cancel := context.WithTimeout(ctx, h.commandTimeout)
	defer cancel()

	items, err := h.store.List(storeCtx)
	if err != nil {
		c.logger.Error("Failed to list items for initial state", zap.Error(err))
		h.sendError(c, apperrors.MsgInternal)
	}

	total, records := h.presence.Snapshot()
	h.fanout.SendTo(c, protocol.InitialState{
		Items:       domain.ItemsToWire(items),
		Connections: total,
		Users:       presence.Users(records),
		Logs:        h.log.Entries(),
		Metrics:     h.metrics,
	})
}

func (h *Hub) broadcastPresence() {
	total, records := h.presence.Snapshot()
	users := presence.Users(records)
	h.fanout.Publish(protocol.Presence{Connections: total, Users: users})
	h.reporter.ReportPresence(total, users)
}

// pushLog appends to the activity log and broadcasts the entry.
func (h *Hub) pushLog(message string) {
	entry := h.log.Append(message, h.now().UTC())
	h.fanout.Publish(protocol.SyncLog{Entry: entry})
	h.reporter.ReportLog(entry)
}

// recordMutation counts an accepted mutation and broadcasts the counters.
func (h *Hub) recordMutation() {
	h.metrics.TotalMessagesProcessed++
	h.fanout.Publish(protocol.MetricsUpdate{Metrics: h.metrics})
	h.reporter.ReportMessages(1)
}

func (h *Hub) snapshot() protocol.Snapshot {
	total, records := h.presence.Snapshot()
	return protocol.Snapshot{
		Connections: total,
		Users:       presence.Users(records),
		Logs:        h.log.Entries(),
		Metrics:     h.metrics,
	}.Normalize()
}

func (h *Hub) sendError(c *Client, message string) {
	h.fanout.SendTo(c, protocol.ErrorPayload{Message: message})
}
