// Package client implements the connection manager used by list clients:
// it keeps one socket to the sync hub open across failures, queues commands
// while offline and reports everything it receives as Events.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Ezyrone/TP-Final-2/pkg/protocol"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State is the connection state of a Manager.
type State int32

const (
	Disconnected State = iota
	Connecting
	Open
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Reconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// DefaultHeartbeatInterval is the period of application-level pings.
const DefaultHeartbeatInterval = 5 * time.Second

const (
	writeWait   = 10 * time.Second
	dialTimeout = 10 * time.Second
)

// ErrStopped is returned by calls made after Run has returned.
var ErrStopped = errors.New("client manager stopped")

// Config configures a Manager.
type Config struct {
	// ServerURL is the http(s) base URL of the hub.
	ServerURL string
	// MonitorURL is the monitoring service; empty to use the hub only.
	MonitorURL string

	HeartbeatInterval time.Duration
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	EventBuffer       int

	Dialer     *websocket.Dialer
	HTTPClient *http.Client
	Logger     *zap.Logger
	Now        func() time.Time
}

type dialResult struct {
	gen  uint64
	conn *websocket.Conn
	err  error
}

type frameResult struct {
	gen  uint64
	data []byte
	err  error
}

type snapshotResult struct {
	gen  uint64
	snap protocol.Snapshot
	err  error
}

// Manager owns the socket to the hub. All connection state lives in the
// goroutine running Run; the exported methods only post requests to it.
type Manager struct {
	cfg       Config
	sessions  SessionStore
	snapshots *SnapshotFetcher
	dialer    *websocket.Dialer
	logger    *zap.Logger
	now       func() time.Time

	state  atomic.Int32
	events chan Event
	done   chan struct{}

	starts     chan Session
	logouts    chan chan error
	sends      chan protocol.Command
	reconnects chan struct{}

	dialed  chan dialResult
	frames  chan frameResult
	fetched chan snapshotResult

	// owned by Run
	session    Session
	hasSession bool
	conn       *websocket.Conn
	gen        uint64
	initial    bool
	backoff    *Backoff
	retry      *time.Timer
	retryC     <-chan time.Time
	heartbeat  *time.Ticker
	heartbeatC <-chan time.Time
	queue      [][]byte
}

// NewManager creates a manager. Call Run to start it.
func NewManager(cfg Config, sessions SessionStore) *Manager {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if sessions == nil {
		sessions = &MemorySessionStore{}
	}

	return &Manager{
		cfg:        cfg,
		sessions:   sessions,
		snapshots:  NewSnapshotFetcher(cfg.MonitorURL, cfg.ServerURL, cfg.HTTPClient, cfg.Logger),
		dialer:     cfg.Dialer,
		logger:     cfg.Logger,
		now:        cfg.Now,
		events:     make(chan Event, cfg.EventBuffer),
		done:       make(chan struct{}),
		starts:     make(chan Session),
		logouts:    make(chan chan error),
		sends:      make(chan protocol.Command),
		reconnects: make(chan struct{}),
		dialed:     make(chan dialResult),
		frames:     make(chan frameResult),
		fetched:    make(chan snapshotResult),
		backoff:    NewBackoff(cfg.InitialBackoff, cfg.MaxBackoff),
	}
}

// Events delivers state changes, hub frames, snapshots and notices. It is
// closed when Run returns. The consumer must keep reading: the manager waits
// for room in the channel.
func (m *Manager) Events() <-chan Event { return m.events }

// State returns the current connection state.
func (m *Manager) State() State { return State(m.state.Load()) }

// Start stores a freshly obtained session and connects with it.
func (m *Manager) Start(session Session) error {
	select {
	case m.starts <- session:
		return nil
	case <-m.done:
		return ErrStopped
	}
}

// Reconnect asks for an immediate connection attempt with the stored session.
func (m *Manager) Reconnect() error {
	select {
	case m.reconnects <- struct{}{}:
		return nil
	case <-m.done:
		return ErrStopped
	}
}

// Send sends cmd now if the socket is open, or queues it until it is.
// Commands sent without a session are dropped.
func (m *Manager) Send(cmd protocol.Command) error {
	select {
	case m.sends <- cmd:
		return nil
	case <-m.done:
		return ErrStopped
	}
}

// Logout closes the socket with a normal closure, cancels every timer and
// forgets the session.
func (m *Manager) Logout() error {
	reply := make(chan error, 1)
	select {
	case m.logouts <- reply:
	case <-m.done:
		return ErrStopped
	}
	return <-reply
}

// Run supervises the connection until ctx is cancelled. A stored session, if
// any, is used to connect right away.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.events)
	defer close(m.done)
	defer m.teardown()

	session, ok, err := m.sessions.Load()
	if err != nil {
		m.logger.Warn("Failed to load stored session", zap.Error(err))
	} else if ok {
		m.session, m.hasSession = session, true
		m.connect(ctx, true)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case s := <-m.starts:
			m.start(ctx, s)

		case reply := <-m.logouts:
			reply <- m.logout(ctx)

		case cmd := <-m.sends:
			m.send(ctx, cmd)

		case <-m.reconnects:
			if m.hasSession && m.conn == nil && m.State() != Connecting {
				m.connect(ctx, true)
			}

		case r := <-m.dialed:
			m.onDialed(ctx, r)

		case r := <-m.frames:
			m.onFrame(ctx, r)

		case r := <-m.fetched:
			if r.gen != m.gen {
				continue
			}
			if r.err != nil {
				m.logger.Warn("Failed to fetch snapshot", zap.Error(r.err))
				continue
			}
			m.emit(ctx, SnapshotEvent{Snapshot: r.snap})

		case <-m.retryC:
			m.retry, m.retryC = nil, nil
			if m.hasSession {
				m.connect(ctx, false)
			}

		case <-m.heartbeatC:
			m.ping(ctx)
		}
	}
}

func (m *Manager) start(ctx context.Context, s Session) {
	if !s.Valid() {
		m.emit(ctx, NoticeEvent{Message: "Session invalide."})
		return
	}
	if err := m.sessions.Save(s); err != nil {
		m.logger.Warn("Failed to persist session", zap.Error(err))
	}
	m.session, m.hasSession = s, true
	m.closeConn(websocket.CloseNormalClosure, "session replaced")
	m.connect(ctx, true)
}

// connect starts a dial. Results of earlier attempts are ignored from here on.
func (m *Manager) connect(ctx context.Context, initial bool) {
	m.stopRetry()
	m.gen++
	m.initial = initial
	m.setState(ctx, Connecting, "")

	target, err := socketURL(m.cfg.ServerURL, m.session.Token)
	if err != nil {
		m.logger.Error("Invalid server URL", zap.String("url", m.cfg.ServerURL), zap.Error(err))
		m.scheduleReconnect(ctx, err.Error())
		return
	}

	gen := m.gen
	go func() {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		conn, _, err := m.dialer.DialContext(dialCtx, target, nil)
		select {
		case m.dialed <- dialResult{gen: gen, conn: conn, err: err}:
		case <-m.done:
			if conn != nil {
				conn.Close()
			}
		}
	}()
}

func (m *Manager) onDialed(ctx context.Context, r dialResult) {
	if r.gen != m.gen || m.State() != Connecting {
		if r.conn != nil {
			r.conn.Close()
		}
		return
	}
	if r.err != nil {
		m.logger.Debug("Dial failed", zap.Error(r.err))
		m.scheduleReconnect(ctx, r.err.Error())
		return
	}

	m.conn = r.conn
	m.backoff.Reset()
	m.setState(ctx, Open, "")
	go m.readLoop(m.gen, r.conn)

	for len(m.queue) > 0 {
		if err := m.write(m.queue[0]); err != nil {
			m.dropConnection(ctx, err.Error())
			return
		}
		m.queue = m.queue[1:]
	}

	m.heartbeat = time.NewTicker(m.cfg.HeartbeatInterval)
	m.heartbeatC = m.heartbeat.C

	if !m.initial {
		gen := m.gen
		go func() {
			snap, err := m.snapshots.Fetch(ctx)
			select {
			case m.fetched <- snapshotResult{gen: gen, snap: snap, err: err}:
			case <-m.done:
			}
		}()
	}
}

func (m *Manager) readLoop(gen uint64, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		select {
		case m.frames <- frameResult{gen: gen, data: data, err: err}:
		case <-m.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (m *Manager) onFrame(ctx context.Context, r frameResult) {
	if r.gen != m.gen || m.conn == nil {
		return
	}
	if r.err != nil {
		m.dropConnection(ctx, closeReason(r.err))
		return
	}

	ev, err := protocol.DecodeEvent(r.data)
	if err != nil {
		m.logger.Warn("Ignoring invalid frame", zap.Error(err))
		return
	}
	if e, ok := ev.(protocol.ErrorPayload); ok {
		m.emit(ctx, NoticeEvent{Message: e.Message})
		return
	}
	m.emit(ctx, ServerEvent{Event: ev})
}

func (m *Manager) send(ctx context.Context, cmd protocol.Command) {
	if !m.hasSession {
		m.logger.Debug("Dropping command without session", zap.String("type", cmd.Type()))
		return
	}
	data, err := protocol.EncodeCommand(cmd)
	if err != nil {
		m.logger.Error("Failed to encode command", zap.String("type", cmd.Type()), zap.Error(err))
		return
	}

	if m.conn == nil || m.State() != Open {
		m.queue = append(m.queue, data)
		return
	}
	if err := m.write(data); err != nil {
		m.queue = append(m.queue, data)
		m.dropConnection(ctx, err.Error())
	}
}

func (m *Manager) ping(ctx context.Context) {
	if m.conn == nil || m.State() != Open {
		return
	}
	data, err := protocol.EncodeCommand(protocol.NewPing(m.now().UnixMilli()))
	if err != nil {
		return
	}
	if err := m.write(data); err != nil {
		m.dropConnection(ctx, err.Error())
	}
}

func (m *Manager) write(data []byte) error {
	m.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return m.conn.WriteMessage(websocket.TextMessage, data)
}

// dropConnection handles a lost socket: the heartbeat stops and a retry is
// scheduled after the current backoff delay.
func (m *Manager) dropConnection(ctx context.Context, reason string) {
	m.gen++
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.stopHeartbeat()
	m.scheduleReconnect(ctx, reason)
}

func (m *Manager) scheduleReconnect(ctx context.Context, reason string) {
	m.stopRetry()
	if !m.hasSession {
		m.setState(ctx, Disconnected, reason)
		return
	}
	delay := m.backoff.Next()
	m.retry = time.NewTimer(delay)
	m.retryC = m.retry.C
	m.logger.Info("Connection lost, retrying", zap.String("reason", reason), zap.Duration("delay", delay))
	m.state.Store(int32(Reconnecting))
	m.emit(ctx, StateEvent{State: Reconnecting, Reason: reason, Delay: delay})
}

func (m *Manager) logout(ctx context.Context) error {
	err := m.sessions.Clear()
	m.session, m.hasSession = Session{}, false
	m.stopRetry()
	m.stopHeartbeat()
	m.closeConn(websocket.CloseNormalClosure, "logout")
	m.gen++
	m.queue = nil
	m.backoff.Reset()
	m.setState(ctx, Disconnected, "logout")
	m.emit(ctx, LoggedOutEvent{})
	return err
}

func (m *Manager) closeConn(code int, reason string) {
	if m.conn == nil {
		return
	}
	m.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait))
	m.conn.Close()
	m.conn = nil
	m.stopHeartbeat()
}

func (m *Manager) teardown() {
	m.stopRetry()
	m.closeConn(websocket.CloseGoingAway, "client shutting down")
}

func (m *Manager) stopRetry() {
	if m.retry != nil {
		m.retry.Stop()
	}
	m.retry, m.retryC = nil, nil
}

func (m *Manager) stopHeartbeat() {
	if m.heartbeat != nil {
		m.heartbeat.Stop()
	}
	m.heartbeat, m.heartbeatC = nil, nil
}

func (m *Manager) setState(ctx context.Context, s State, reason string) {
	m.state.Store(int32(s))
	m.emit(ctx, StateEvent{State: s, Reason: reason})
}

func (m *Manager) emit(ctx context.Context, ev Event) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
	}
}

// socketURL maps the hub's http(s) base URL to its /ws endpoint.
func socketURL(serverURL, token string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func closeReason(err error) string {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if closeErr.Text != "" {
			return closeErr.Text
		}
		return fmt.Sprintf("code %d", closeErr.Code)
	}
	return err.Error()
}
