package game

import (
	"context"
	"sync"
)

// InMemoryMatchStore хранит snapshot-ы в памяти процесса.
// Используется без REDIS_ADDR и в тестах.
type InMemoryMatchStore struct {
	mu sync.Mutex
	m  map[string]MatchSnapshot
}

func NewInMemoryMatchStore() *InMemoryMatchStore {
	return &InMemoryMatchStore{
		m: make(map[string]MatchSnapshot),
	}
}

func (s *InMemoryMatchStore) Save(_ context.Context, code string, snap MatchSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[code] = snap
	return nil
}

func (s *InMemoryMatchStore) Load(_ context.Context, code string) (MatchSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.m[code]
	return snap, ok, nil
}

func (s *InMemoryMatchStore) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, code)
	return nil
}
