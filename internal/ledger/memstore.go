package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemory implements Store with in-process concurrency safety. It backs
// tests and local smoke runs; production deployments use the Postgres store.
type InMemory struct {
	mu    sync.RWMutex
	accts map[string]*Account
	order []string // insertion order, preserved for unsorted lists
}

// NewInMemory creates a fresh in-memory account store.
func NewInMemory() *InMemory {
	return &InMemory{accts: make(map[string]*Account)}
}

func (s *InMemory) Create(ctx context.Context, name string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := &Account{
		ID:        uuid.NewString(),
		Name:      name,
		Balance:   0,
		CreatedAt: time.Now().UTC(),
	}
	s.accts[acc.ID] = acc
	s.order = append(s.order, acc.ID)
	return *acc, nil
}

func (s *InMemory) Get(ctx context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *acc, nil
}

func (s *InMemory) List(ctx context.Context, f ListFilter) ([]Account, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Account, 0, len(s.order))
	for _, id := range s.order {
		acc := s.accts[id]
		if f.Name != "" && acc.Name != f.Name {
			continue
		}
		matched = append(matched, *acc)
	}

	switch f.SortBy {
	case SortName:
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	case SortBalance:
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Balance < matched[j].Balance })
	}

	total := len(matched)
	if f.Skip >= total {
		return []Account{}, total, nil
	}
	end := f.Skip + f.Take
	if end > total {
		end = total
	}
	page := make([]Account, end-f.Skip)
	copy(page, matched[f.Skip:end])
	return page, total, nil
}

func (s *InMemory) ApplyDelta(ctx context.Context, id string, delta int64) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	if acc.Balance+delta < 0 {
		return Account{}, ErrInsufficientFunds
	}
	acc.Balance += delta
	return *acc, nil
}

func (s *InMemory) Transfer(ctx context.Context, senderID, recipientID string, amount int64) (Account, Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, ok := s.accts[senderID]
	if !ok {
		return Account{}, Account{}, ErrNotFound
	}
	recipient, ok := s.accts[recipientID]
	if !ok {
		return Account{}, Account{}, ErrNotFound
	}
	if sender.Balance < amount {
		return Account{}, Account{}, ErrInsufficientFunds
	}
	sender.Balance -= amount
	recipient.Balance += amount
	return *sender, *recipient, nil
}

var _ Store = (*InMemory)(nil)
