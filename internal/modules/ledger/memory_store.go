package ledger

import (
	"context"
	"sync"
	"time"

	"farebox/internal/types"
)

// MemoryStore keeps riders in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.Mutex
	riders map[types.ID]Rider
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{riders: make(map[types.ID]Rider)}
}

func (m *MemoryStore) Get(_ context.Context, id types.ID) (*Rider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.riders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) Create(_ context.Context, r Rider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.riders[r.ID]; ok {
		return ErrAlreadyExists
	}
	m.riders[r.ID] = r
	return nil
}

func (m *MemoryStore) UpdateProfile(_ context.Context, id types.ID, name, phone string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.riders[id]
	if !ok {
		return ErrNotFound
	}
	r.Name, r.Phone, r.UpdatedAt = name, phone, at
	m.riders[id] = r
	return nil
}

func (m *MemoryStore) SetBalance(_ context.Context, id types.ID, amount int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.riders[id]
	if !ok {
		return ErrNotFound
	}
	r.Balance, r.UpdatedAt = amount, at
	m.riders[id] = r
	return nil
}

func (m *MemoryStore) AdjustBalance(_ context.Context, id types.ID, delta int64, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.riders[id]
	if !ok {
		return 0, ErrNotFound
	}
	next := r.Balance + delta
	if next < 0 {
		return r.Balance, ErrInsufficientFunds
	}
	r.Balance, r.UpdatedAt = next, at
	m.riders[id] = r
	return next, nil
}
