package apikey

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps keys in memory for tests and local development.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]Key
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]Key)}
}

func (s *MemoryStore) CreateKey(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key.Secret = ""
	s.keys[key.ID] = key
	return nil
}

func (s *MemoryStore) GetKey(_ context.Context, id string) (Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[id]
	if !ok {
		return Key{}, ErrKeyNotFound
	}
	return key, nil
}

func (s *MemoryStore) GetKeyByHash(_ context.Context, hash string) (Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.keys {
		if key.Hash == hash {
			return key, nil
		}
	}
	return Key{}, ErrKeyNotFound
}

func (s *MemoryStore) ListKeys(_ context.Context) ([]Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]Key, 0, len(s.keys))
	for _, key := range s.keys {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].CreatedAt.Equal(keys[j].CreatedAt) {
			return keys[i].CreatedAt.After(keys[j].CreatedAt)
		}
		return keys[i].ID > keys[j].ID
	})
	return keys, nil
}

func (s *MemoryStore) TouchKey(_ context.Context, id string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok {
		return ErrKeyNotFound
	}
	key.LastUsedAt = &usedAt
	s.keys[id] = key
	return nil
}

func (s *MemoryStore) RevokeKey(_ context.Context, id string, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok {
		return ErrKeyNotFound
	}
	key.RevokedAt = &revokedAt
	s.keys[id] = key
	return nil
}
