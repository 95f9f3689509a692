package store

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore keeps settings in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]map[string]string),
	}
}

func (s *MemoryStore) get(namespace, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.values[namespace]
	if !ok {
		return "", false
	}
	v, ok := ns[key]
	return v, ok
}

func (s *MemoryStore) set(namespace, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.values[namespace]
	if !ok {
		ns = make(map[string]string)
		s.values[namespace] = ns
	}
	ns[key] = value
}

// GetString implements Store
func (s *MemoryStore) GetString(_ context.Context, namespace, key string) (string, error) {
	v, ok := s.get(namespace, key)
	if !ok {
		return "", newError("get", namespace, key, ErrNotFound)
	}
	return v, nil
}

// SetString implements Store
func (s *MemoryStore) SetString(_ context.Context, namespace, key, value string) error {
	s.set(namespace, key, value)
	return nil
}

// GetUint64 implements Store
func (s *MemoryStore) GetUint64(_ context.Context, namespace, key string) (uint64, error) {
	v, ok := s.get(namespace, key)
	if !ok {
		return 0, newError("get", namespace, key, ErrNotFound)
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, newError("get", namespace, key, err)
	}
	return n, nil
}

// SetUint64 implements Store
func (s *MemoryStore) SetUint64(_ context.Context, namespace, key string, value uint64) error {
	s.set(namespace, key, strconv.FormatUint(value, 10))
	return nil
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}
