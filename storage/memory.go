package storage

import "sync"

// MemoryStore is a volatile Store used by tests and embedders that manage
// persistence themselves.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, true, nil
}

func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	s.values[key] = cp
	return nil
}

func (s *MemoryStore) Close() error { return nil }
