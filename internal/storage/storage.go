package storage

import (
	"sync"
)

// Store is a mutex-guarded in-memory map keyed by ID.
type Store[T any] struct {
	items map[string]T
	mu    sync.RWMutex
}

func New[T any]() *Store[T] {
	return &Store[T]{
		items: make(map[string]T),
	}
}

func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, exists := s.items[id]
	return item, exists
}

func (s *Store[T]) Set(id string, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = item
}

// GetOrCreate returns the item for id, creating it with create when absent.
func (s *Store[T]) GetOrCreate(id string, create func() T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, exists := s.items[id]; exists {
		return item
	}
	item := create()
	s.items[id] = item
	return item
}

func (s *Store[T]) GetAll() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]T, len(s.items))
	for k, v := range s.items {
		result[k] = v
	}
	return result
}

func (s *Store[T]) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}
