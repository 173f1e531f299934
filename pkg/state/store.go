package state

import (
	"slices"
	"sync"
)

//go:generate mockgen -source=store.go -destination=mock_store.go -package=state Store

// Store keeps persisted script values by variable name.
type Store interface {
	// Get returns the stored value and whether one exists.
	Get(name string) (any, bool, error)
	Put(name string, v any) error
	Delete(name string) error
	// Keys returns the stored names in ascending order.
	Keys() ([]string, error)
	Clear() error
}

// MemoryStore is a Store backed by a plain map. It is not safe for concurrent writers; wrap it with Synchronized
// when several invocations share it.
type MemoryStore struct {
	values map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]any)}
}

func (s *MemoryStore) Get(name string) (any, bool, error) {
	v, ok := s.values[name]
	return v, ok, nil
}

func (s *MemoryStore) Put(name string, v any) error {
	s.values[name] = v
	return nil
}

func (s *MemoryStore) Delete(name string) error {
	delete(s.values, name)
	return nil
}

func (s *MemoryStore) Keys() ([]string, error) {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *MemoryStore) Clear() error {
	clear(s.values)
	return nil
}

type synchronized struct {
	mu    sync.RWMutex
	store Store
}

// Synchronized serializes access to store.
func Synchronized(store Store) Store {
	return &synchronized{store: store}
}

func (s *synchronized) Get(name string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Get(name)
}

func (s *synchronized) Put(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Put(name, v)
}

func (s *synchronized) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(name)
}

func (s *synchronized) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Keys()
}

func (s *synchronized) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Clear()
}
