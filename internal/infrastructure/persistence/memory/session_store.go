package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"
	"github.com/Ezyrone/TP-Final-2/internal/repository"
)

// SessionStore keeps sessions indexed by token hash.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewSessionStore creates an empty session store
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]domain.Session)}
}

// Save stores a session, replacing any session with the same token hash
func (s *SessionStore) Save(ctx context.Context, session domain.Session) error {
	if session.TokenHash == "" {
		return fmt.Errorf("session token hash is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.TokenHash] = session
	return nil
}

// FindByTokenHash looks a session up by its token hash
func (s *SessionStore) FindByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[tokenHash]
	if !ok {
		return domain.Session{}, repository.ErrSessionNotFound
	}
	return session, nil
}

// DeleteCreatedBefore prunes sessions created before cutoff
func (s *SessionStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for hash, session := range s.sessions {
		if session.CreatedAt.Before(cutoff) {
			delete(s.sessions, hash)
			removed++
		}
	}
	return removed, nil
}
