package session

import (
	"context"
	"sync"
)

// MemoryStore keeps selections in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	channel, ok := s.entries[Key(userID)]
	return channel, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, userID int64, channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[Key(userID)] = channel
	return nil
}
