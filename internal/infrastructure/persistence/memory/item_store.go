// Package memory provides in-memory implementations of the repository ports.
// They back local runs and tests; contents are lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"
	"github.com/Ezyrone/TP-Final-2/internal/repository"
)

// ItemStore keeps items in a map guarded by a RWMutex.
type ItemStore struct {
	mu    sync.RWMutex
	items map[string]domain.Item
}

// NewItemStore creates an empty item store
func NewItemStore() *ItemStore {
	return &ItemStore{items: make(map[string]domain.Item)}
}

// List returns the live items ordered by creation time
func (s *ItemStore) List(ctx context.Context) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Item, 0, len(s.items))
	for _, it := range s.items {
		if !it.Deleted {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Create stores a new item
func (s *ItemStore) Create(ctx context.Context, item domain.Item) error {
	if item.ID == "" {
		return fmt.Errorf("item id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return fmt.Errorf("item already exists: %s", item.ID)
	}
	s.items[item.ID] = item
	return nil
}

// Update changes the content of a live item owned by ownerID
func (s *ItemStore) Update(ctx context.Context, id, ownerID, content string, now time.Time) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.writable(id, ownerID)
	if !ok {
		return domain.Item{}, repository.ErrNotFoundOrForbidden
	}
	it.Content = content
	it.UpdatedAt = now
	s.items[id] = it
	return it, nil
}

// SoftDelete flags a live item owned by ownerID as deleted
func (s *ItemStore) SoftDelete(ctx context.Context, id, ownerID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.writable(id, ownerID)
	if !ok {
		return repository.ErrNotFoundOrForbidden
	}
	it.Deleted = true
	it.UpdatedAt = now
	s.items[id] = it
	return nil
}

// writable must be called with the lock held.
func (s *ItemStore) writable(id, ownerID string) (domain.Item, bool) {
	it, exists := s.items[id]
	if !exists || it.Deleted || it.OwnerID != ownerID {
		return domain.Item{}, false
	}
	return it, true
}
