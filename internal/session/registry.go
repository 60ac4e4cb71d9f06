// Package session resolves bearer tokens presented on the socket handshake.
//
// Tokens are minted by the external login service, which hands each new token
// to Registry.Record. The registry only ever stores the SHA-256 of a token.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"
	"github.com/Ezyrone/TP-Final-2/internal/repository"
	apperrors "github.com/Ezyrone/TP-Final-2/pkg/errors"

	"go.uber.org/zap"
)

// Registry authenticates tokens against a SessionStore.
type Registry struct {
	store  repository.SessionStore
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a registry over store.
func NewRegistry(store repository.SessionStore, logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Authenticate returns the session bound to token. An empty token yields a
// token-missing AuthError, an unknown one a session-invalid AuthError.
// Sessions past their maximum age are rejected even if not yet pruned.
func (r *Registry) Authenticate(ctx context.Context, token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, apperrors.NewTokenMissingError()
	}

	s, err := r.store.FindByTokenHash(ctx, domain.HashToken(token))
	if errors.Is(err, repository.ErrSessionNotFound) {
		return domain.Session{}, apperrors.NewSessionInvalidError()
	}
	if err != nil {
		r.logger.Error("Session lookup failed", zap.Error(err))
		return domain.Session{}, apperrors.NewSessionInvalidError().WithCause(err)
	}
	if s.Expired(r.now()) {
		return domain.Session{}, apperrors.NewSessionInvalidError()
	}
	return s, nil
}

// Record stores a freshly minted token for a user and prunes sessions older
// than domain.SessionMaxAge.
func (r *Registry) Record(ctx context.Context, userID, pseudo, token string) (domain.Session, error) {
	if userID == "" || token == "" {
		return domain.Session{}, fmt.Errorf("user id and token are required")
	}

	now := r.now()
	removed, err := r.store.DeleteCreatedBefore(ctx, now.Add(-domain.SessionMaxAge))
	if err != nil {
		r.logger.Warn("Failed to prune expired sessions", zap.Error(err))
	} else if removed > 0 {
		r.logger.Debug("Pruned expired sessions", zap.Int("count", removed))
	}

	s := domain.NewSession(userID, pseudo, token, now)
	if err := r.store.Save(ctx, s); err != nil {
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}

	r.logger.Info("Session recorded",
		zap.String("userID", userID),
		zap.String("sessionID", s.ID))
	return s, nil
}
