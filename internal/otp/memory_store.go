package otp

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu    sync.Mutex
	codes map[string]Code
}

// NewMemoryStore builds an in-memory code store for development and tests.
func NewMemoryStore() Store {
	return &memoryStore{codes: make(map[string]Code)}
}

func (s *memoryStore) Put(_ context.Context, code Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.IdentityID] = code
	return nil
}

func (s *memoryStore) Get(_ context.Context, identityID string) (Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[identityID]
	if !ok {
		return Code{}, ErrNoActiveCode
	}
	return code, nil
}

func (s *memoryStore) Update(_ context.Context, code Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[code.IdentityID]; !ok {
		return ErrNoActiveCode
	}
	s.codes[code.IdentityID] = code
	return nil
}
