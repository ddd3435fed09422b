package stream

import (
	"context"
	"sync"
)

type CursorStore interface {
	Load(ctx context.Context) (cursor string, err error)
	Save(ctx context.Context, cursor string) error
}

type MemoryCursorStore struct {
	mu     sync.Mutex
	cursor string
}

func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{cursor: Beginning}
}

func (s *MemoryCursorStore) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, nil
}

func (s *MemoryCursorStore) Save(_ context.Context, cursor string) error {
	s.mu.Lock()
	s.cursor = cursor
	s.mu.Unlock()
	return nil
}
