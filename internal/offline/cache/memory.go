package cache

import (
	"context"
	"sort"
	"sync"
)

// MemoryStorage keeps caches in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	caches map[string]map[string]*Entry
}

// NewMemoryStorage creates an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{caches: make(map[string]map[string]*Entry)}
}

func (s *MemoryStorage) Get(_ context.Context, name, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.caches[name][key]
	if !ok {
		return nil, nil
	}
	cp := *e
	cp.Header = e.Header.Clone()
	return &cp, nil
}

func (s *MemoryStorage) Put(_ context.Context, name string, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.caches[name]
	if !ok {
		c = make(map[string]*Entry)
		s.caches[name] = c
	}
	cp := *e
	c[e.Key] = &cp
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, name string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.caches[name]
	for _, k := range keys {
		delete(c, k)
	}
	if len(c) == 0 {
		delete(s.caches, name)
	}
	return nil
}

func (s *MemoryStorage) Stamps(_ context.Context, name string) ([]Stamp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Stamp, 0, len(s.caches[name]))
	for k, e := range s.caches[name] {
		out = append(out, Stamp{Key: k, StoredAt: e.StoredAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StoredAt.Equal(out[j].StoredAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].StoredAt.Before(out[j].StoredAt)
	})
	return out, nil
}

func (s *MemoryStorage) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.caches))
	for name := range s.caches {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStorage) Drop(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.caches, name)
	return nil
}
