// Package repository defines the persistence ports of the sync hub.
//
// Adapters live under internal/infrastructure/persistence: an in-memory one for
// tests and local runs, DynamoDB for items and sessions, and Redis for sessions.
package repository

import (
	"context"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"
)

// ItemStore persists list items.
type ItemStore interface {
	// List returns the non-deleted items ordered by creation time.
	List(ctx context.Context) ([]domain.Item, error)

	Create(ctx context.Context, item domain.Item) error

	// Update replaces the content of an item owned by ownerID that is not
	// deleted. Any other case returns ErrNotFoundOrForbidden.
	Update(ctx context.Context, id, ownerID, content string, now time.Time) (domain.Item, error)

	// SoftDelete marks an item owned by ownerID as deleted. Unknown, foreign
	// and already deleted items return ErrNotFoundOrForbidden.
	SoftDelete(ctx context.Context, id, ownerID string, now time.Time) error
}

// SessionStore persists sessions keyed by token hash.
type SessionStore interface {
	Save(ctx context.Context, session domain.Session) error

	// FindByTokenHash returns ErrSessionNotFound when no session matches.
	FindByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error)

	// DeleteCreatedBefore removes sessions created before cutoff and reports
	// how many were removed.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
