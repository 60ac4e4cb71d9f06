package hub

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"
	"github.com/Ezyrone/TP-Final-2/internal/observability"
	"github.com/Ezyrone/TP-Final-2/internal/ratelimit"
	apperrors "github.com/Ezyrone/TP-Final-2/pkg/errors"
	"github.com/Ezyrone/TP-Final-2/pkg/protocol"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Authenticator resolves the bearer token of a handshake.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Session, error)
}

// ServerConfig holds WebSocket server configuration
type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	MaxMessageSize  int64
	CheckOrigin     func(r *http.Request) bool
}

// DefaultServerConfig returns default WebSocket server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  defaultSendBufferSize,
		MaxMessageSize:  defaultMaxMessageSize,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// Server serves the socket handshake and the hub's HTTP endpoints.
type Server struct {
	hub       *Hub
	sessions  Authenticator
	upgrader  websocket.Upgrader
	ipLimiter *ratelimit.IPLimiter
	collector *observability.Collector
	config    ServerConfig
	logger    *zap.Logger

	recorder   SessionRecorder
	hookSecret string
	validate   *validator.Validate
}

// NewServer creates a server. ipLimiter may be nil to accept every handshake.
func NewServer(hub *Hub, sessions Authenticator, ipLimiter *ratelimit.IPLimiter, collector *observability.Collector, config ServerConfig, logger *zap.Logger) *Server {
	if config.CheckOrigin == nil {
		config.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return &Server{
		hub:      hub,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		ipLimiter: ipLimiter,
		collector: collector,
		config:    config,
		logger:    logger,
	}
}

// HandleWebSocket upgrades GET /ws?token=... and attaches the socket to the hub.
//
// The upgrade always happens first so authentication failures reach the
// browser as an error frame followed by close code 4001 (no token) or 4002
// (unknown session).
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.ipLimiter != nil && !s.ipLimiter.Allow(remoteIP(r)) {
		s.collector.HandshakeDenied.WithLabelValues("rate_limited").Inc()
		s.logger.Warn("Handshake rate limited", zap.String("remoteAddr", r.RemoteAddr))
		http.Error(w, "Too many connection attempts", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr))
		return
	}

	session, err := s.sessions.Authenticate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		s.reject(conn, err)
		return
	}

	client := NewClient(session, s.hub, conn, s.config.SendBufferSize, s.config.MaxMessageSize, s.logger)
	if err := s.attach(client); err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
	}
}

// attach registers client with the hub, then starts its pumps. The open
// sequence frames wait in the send buffer until the write pump runs. Nothing
// is started when the hub has stopped.
func (s *Server) attach(client *Client) error {
	if err := s.hub.Register(client); err != nil {
		return err
	}
	go client.writePump()
	go client.readPump()
	return nil
}

// reject sends the auth error frame and closes with the matching code.
func (s *Server) reject(conn *websocket.Conn, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		appErr = apperrors.NewSessionInvalidError().WithCause(err)
	}

	code, reason := protocol.CloseSessionInvalid, "Session invalide"
	if appErr.Code == apperrors.CodeTokenMissing {
		code, reason = protocol.CloseTokenMissing, "Token manquant"
	}
	s.collector.HandshakeDenied.WithLabelValues(appErr.Code).Inc()
	s.logger.Info("Handshake rejected", zap.String("code", appErr.Code), zap.Int("closeCode", code))

	if data, mErr := protocol.EncodeEvent(protocol.ErrorPayload{Message: appErr.Message}); mErr == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.TextMessage, data)
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait))
	conn.Close()
}

// HandleSnapshot serves GET /api/metrics.
func (s *Server) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	snap, err := s.hub.Snapshot(ctx)
	if err != nil {
		s.logger.Warn("Snapshot unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "hub unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleHealth serves GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReady serves GET /ready: ready while the hub loop runs.
func (s *Server) HandleReady(w http.ResponseWriter, r *http.Request) {
	if !s.hub.Running() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
