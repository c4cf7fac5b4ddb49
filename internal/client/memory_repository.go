package client

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	storage map[int64]Client
}

// NewMemoryRepository constructs an in-memory repository for development and
// tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[int64]Client)}
}

func (r *memoryRepository) Create(_ context.Context, c Client) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	r.storage[c.ID] = c
	return c.ID, nil
}

func (r *memoryRepository) Find(_ context.Context, id int64) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.storage[id]
	if !ok {
		return Client{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryRepository) List(_ context.Context) ([]Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Client, 0, len(r.storage))
	for _, c := range r.storage {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepository) Update(_ context.Context, c Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.storage[c.ID]
	if !ok {
		return ErrNotFound
	}
	c.Balance = existing.Balance
	c.CreatedAt = existing.CreatedAt
	r.storage[c.ID] = c
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[id]; !ok {
		return ErrNotFound
	}
	delete(r.storage, id)
	return nil
}
