package auth

import (
	"context"
	"sync"
	"time"

	"bankrest.org/internal/ids"
)

// InMemoryUserStore implements UserStore for tests and local smoke runs.
type InMemoryUserStore struct {
	mu     sync.RWMutex
	byID   map[string]*User
	byName map[string]string // name -> id
}

// NewInMemoryUserStore creates an empty user store.
func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		byID:   make(map[string]*User),
		byName: make(map[string]string),
	}
}

func (s *InMemoryUserStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[u.Name]; ok {
		return ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.byID[u.ID] = &cp
	s.byName[u.Name] = u.ID
	return nil
}

func (s *InMemoryUserStore) FindByName(ctx context.Context, name string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemoryUserStore) SetRefreshToken(ctx context.Context, userID, tokenHash string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return ErrNotFound
	}
	u.RefreshTokenHash = tokenHash
	u.RefreshTokenExpiry = expiry
	u.UpdatedAt = time.Now().UTC()
	return nil
}

var _ UserStore = (*InMemoryUserStore)(nil)
