package authstate

import (
	"fmt"
	"sync"
	"time"
)

// InMemoryStore provides an in-memory state store for testing
type InMemoryStore struct {
	states map[string]*State
	mutex  sync.RWMutex
	now    func() int64
}

// NewInMemoryStore creates a new in-memory state store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		states: make(map[string]*State),
		now:    func() int64 { return time.Now().Unix() },
	}
}

// Put records a pending handshake for the given state string.
func (s *InMemoryStore) Put(state, subdomain string) error {
	if state == "" {
		return fmt.Errorf("state cannot be empty")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.states[state] = &State{Subdomain: subdomain, TS: s.now()}
	return nil
}

// Get resolves a state string, (nil, nil) when unknown or expired.
func (s *InMemoryStore) Get(state string) (*State, error) {
	if state == "" {
		return nil, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	item, ok := s.states[state]
	if !ok {
		return nil, nil
	}
	if s.now()-item.TS > int64(TTL.Seconds()) {
		delete(s.states, state)
		return nil, nil
	}

	cp := *item
	return &cp, nil
}

// Purge drops every expired state in one pass.
func (s *InMemoryStore) Purge() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for state, item := range s.states {
		if s.now()-item.TS > int64(TTL.Seconds()) {
			delete(s.states, state)
		}
	}
	return nil
}
