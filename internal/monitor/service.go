// Package monitor implements the monitoring service that mirrors the hub's
// presence, counters and activity log, and the reporter the hub uses to feed
// it.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/middleware"
	"github.com/Ezyrone/TP-Final-2/internal/synclog"
	"github.com/Ezyrone/TP-Final-2/pkg/protocol"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// MaxLogs is the number of log entries the service keeps.
const MaxLogs = 50

// Service holds the last state reported by the hub.
type Service struct {
	mu          sync.Mutex
	connections int
	users       []protocol.User
	metrics     protocol.Metrics
	logs        *synclog.Ring

	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an empty monitoring state.
func NewService(logger *zap.Logger) *Service {
	return &Service{
		users:  []protocol.User{},
		logs:   synclog.NewRing(MaxLogs),
		logger: logger,
		now:    time.Now,
	}
}

// Snapshot returns a copy of the current state.
func (s *Service) Snapshot() protocol.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return protocol.Snapshot{
		Connections: s.connections,
		Users:       append([]protocol.User(nil), s.users...),
		Logs:        s.logs.Entries(),
		Metrics:     s.metrics,
	}.Normalize()
}

// SetPresence replaces the connection count and the user list.
func (s *Service) SetPresence(connections int, users []protocol.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections = connections
	s.users = append([]protocol.User{}, users...)
}

// AddMessages bumps the processed-message counter. A zero delta counts as one.
func (s *Service) AddMessages(delta int64) protocol.Metrics {
	if delta == 0 {
		delta = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.TotalMessagesProcessed += delta
	return s.metrics
}

// AppendLog stores an entry, stamping it with the current time when needed.
func (s *Service) AppendLog(message string, ts time.Time) protocol.LogEntry {
	if ts.IsZero() {
		ts = s.now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logs.Append(message, ts)
}

// Router exposes the service over HTTP.
func (s *Service) Router() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(s.logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	router.Get("/metrics", s.handleMetrics)
	router.Post("/presence", s.handlePresence)
	router.Post("/metrics/messages", s.handleMessages)
	router.Post("/logs", s.handleLogs)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return router
}

func (s *Service) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Snapshot())
}

type presenceRequest struct {
	Connections int             `json:"connections"`
	Users       []protocol.User `json:"users"`
}

func (s *Service) handlePresence(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	s.SetPresence(req.Connections, req.Users)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type messagesRequest struct {
	Delta int64 `json:"delta"`
}

func (s *Service) handleMessages(w http.ResponseWriter, r *http.Request) {
	var req messagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.AddMessages(req.Delta))
}

type logRequest struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (s *Service) handleLogs(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	var ts time.Time
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, req.Timestamp)
		if err != nil {
			s.logger.Debug("Ignoring unparsable log timestamp", zap.String("timestamp", req.Timestamp))
		} else {
			ts = parsed
		}
	}
	writeJSON(w, http.StatusOK, s.AppendLog(req.Message, ts))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
