// Package sourcestest provides in-memory collaborators for source tests.
package sourcestest

import (
	"context"
	"sync"
)

// CursorStore records cursors in memory.
type CursorStore struct {
	mu      sync.Mutex
	cursors map[string]string
	Err     error
}

func NewCursorStore() *CursorStore {
	return &CursorStore{cursors: make(map[string]string)}
}

func (s *CursorStore) SetCursor(_ context.Context, provider, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.cursors[provider] = value
	return nil
}

// Cursor returns the stored cursor and whether one was written.
func (s *CursorStore) Cursor(provider string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cursors[provider]
	return v, ok
}
