package storage

import (
	"context"
	"sync"
	"time"
)

type item struct {
	data      []byte
	expiresAt int64
}

type MemoryStore struct {
	items map[string]item
	mu    sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]item),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[key]
	if !exists || expired(item.expiresAt, time.Now()) {
		return nil, false, nil
	}

	return append([]byte(nil), item.data...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = item{
		data:      append([]byte(nil), data...),
		expiresAt: expiresAt(ttl),
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]item)
	return nil
}

func (s *MemoryStore) PurgeExpired(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var removed int64
	for key, item := range s.items {
		if expired(item.expiresAt, now) {
			delete(s.items, key)
			removed++
		}
	}
	return removed, nil
}
