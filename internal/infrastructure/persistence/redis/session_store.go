// Package redis stores sessions in Redis. Each session expires on its own
// when it reaches domain.SessionMaxAge, so pruning is left to Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"
	"github.com/Ezyrone/TP-Final-2/internal/repository"

	"github.com/redis/go-redis/v9"
)

// SessionStore implements repository.SessionStore on Redis.
type SessionStore struct {
	rdb    redis.Cmdable
	prefix string
	now    func() time.Time
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithPrefix sets the key prefix (default "syncboard:session").
func WithPrefix(prefix string) Option {
	return func(s *SessionStore) { s.prefix = strings.Trim(prefix, ":") }
}

// NewClient opens a client on addr and checks it answers.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// NewSessionStore creates a session store on rdb.
func NewSessionStore(rdb redis.Cmdable, opts ...Option) *SessionStore {
	s := &SessionStore{rdb: rdb, prefix: "syncboard:session", now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) key(hash string) string { return s.prefix + ":" + hash }

// Save stores the session with a TTL ending when the session expires.
func (s *SessionStore) Save(ctx context.Context, session domain.Session) error {
	ttl := domain.SessionMaxAge - s.now().Sub(session.CreatedAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(session.TokenHash), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// FindByTokenHash reads the session stored under tokenHash.
func (s *SessionStore) FindByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error) {
	data, err := s.rdb.Get(ctx, s.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, repository.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

// DeleteCreatedBefore is a no-op: keys expire through their TTL.
func (s *SessionStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}
