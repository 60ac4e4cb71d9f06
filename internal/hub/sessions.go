package hub

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxSessionBody = 4096

// SessionRecorder persists tokens minted by the external login service.
type SessionRecorder interface {
	Record(ctx context.Context, userID, pseudo, token string) (domain.Session, error)
}

type recordSessionRequest struct {
	UserID string `json:"userId" validate:"required"`
	Pseudo string `json:"pseudo" validate:"required,max=20"`
	Token  string `json:"token" validate:"required"`
}

type recordSessionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Pseudo    string    `json:"pseudo"`
	CreatedAt time.Time `json:"createdAt"`
}

// WithSessionRecorder enables POST /internal/sessions, the hook the login
// service calls after minting a token. When secret is set, callers must send
// it as a bearer token.
func (s *Server) WithSessionRecorder(recorder SessionRecorder, secret string) *Server {
	s.recorder = recorder
	s.hookSecret = secret
	s.validate = validator.New()
	return s
}

// HandleRecordSession stores the session so the token can open sockets.
func (s *Server) HandleRecordSession(w http.ResponseWriter, r *http.Request) {
	if !s.hookAuthorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req recordSessionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSessionBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	req.Pseudo = strings.TrimSpace(req.Pseudo)
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId, pseudo and token are required"})
		return
	}

	session, err := s.recorder.Record(r.Context(), req.UserID, req.Pseudo, req.Token)
	if err != nil {
		s.logger.Error("Failed to record session", zap.String("userID", req.UserID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, recordSessionResponse{
		ID:        session.ID,
		UserID:    session.UserID,
		Pseudo:    session.Pseudo,
		CreatedAt: session.CreatedAt,
	})
}

func (s *Server) hookAuthorized(r *http.Request) bool {
	if s.hookSecret == "" {
		return true
	}
	got := r.Header.Get("Authorization")
	want := "Bearer " + s.hookSecret
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
