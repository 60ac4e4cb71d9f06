// Package mocks provides testify mocks of the repository ports.
package mocks

import (
	"context"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"

	"github.com/stretchr/testify/mock"
)

// ItemStore is a mock of repository.ItemStore.
type ItemStore struct {
	mock.Mock
}

func (m *ItemStore) List(ctx context.Context) ([]domain.Item, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]domain.Item)
	return items, args.Error(1)
}

func (m *ItemStore) Create(ctx context.Context, item domain.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *ItemStore) Update(ctx context.Context, id, ownerID, content string, now time.Time) (domain.Item, error) {
	args := m.Called(ctx, id, ownerID, content, now)
	item, _ := args.Get(0).(domain.Item)
	return item, args.Error(1)
}

func (m *ItemStore) SoftDelete(ctx context.Context, id, ownerID string, now time.Time) error {
	args := m.Called(ctx, id, ownerID, now)
	return args.Error(0)
}

// SessionStore is a mock of repository.SessionStore.
type SessionStore struct {
	mock.Mock
}

func (m *SessionStore) Save(ctx context.Context, session domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *SessionStore) FindByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error) {
	args := m.Called(ctx, tokenHash)
	session, _ := args.Get(0).(domain.Session)
	return session, args.Error(1)
}

func (m *SessionStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}
