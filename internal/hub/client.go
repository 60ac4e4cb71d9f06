package hub

import (
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Defaults for the per-connection limits
	defaultMaxMessageSize = 4096
	defaultSendBufferSize = 256
)

// Client is one authenticated socket.
type Client struct {
	id        string
	userID    string
	pseudo    string
	sessionID string

	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger

	maxMessageSize int64
}

// NewClient creates the connection record for an authenticated session.
func NewClient(session domain.Session, hub *Hub, conn *websocket.Conn, sendBuffer int, maxMessageSize int64, logger *zap.Logger) *Client {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBufferSize
	}
	if maxMessageSize <= 0 {
		maxMessageSize = defaultMaxMessageSize
	}
	id := uuid.New().String()
	return &Client{
		id:             id,
		userID:         session.UserID,
		pseudo:         session.Pseudo,
		sessionID:      session.ID,
		hub:            hub,
		conn:           conn,
		send:           make(chan []byte, sendBuffer),
		maxMessageSize: maxMessageSize,
		logger: logger.With(
			zap.String("userID", session.UserID),
			zap.String("connectionID", id),
		),
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// UserID returns the id of the authenticated user.
func (c *Client) UserID() string { return c.userID }

// Pseudo returns the display name of the authenticated user.
func (c *Client) Pseudo() string { return c.pseudo }

// readPump forwards frames from the socket to the hub loop until the socket
// fails or the hub stops.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		c.logger.Debug("Read pump stopped")
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		// any frame proves the peer is alive
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := c.hub.Dispatch(c, message); err != nil {
			return
		}
	}
}

// writePump writes queued frames to the socket and keeps it alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.Debug("Write pump stopped")
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}
