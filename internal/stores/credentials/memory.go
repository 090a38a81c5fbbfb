package credentials

import (
	"fmt"
	"sync"

	"github.com/watereef7/loss-control-backend/pkg/amocrm"
)

// InMemoryStore provides an in-memory credential store for testing
type InMemoryStore struct {
	records map[string]*amocrm.TokenRecord
	mutex   sync.RWMutex
}

// NewInMemoryStore creates a new in-memory credential store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*amocrm.TokenRecord),
	}
}

// Get retrieves one account's token record, (nil, nil) when the account has
// never connected
func (s *InMemoryStore) Get(subdomain string) (*amocrm.TokenRecord, error) {
	if subdomain == "" {
		return nil, fmt.Errorf("subdomain cannot be empty")
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rec, ok := s.records[subdomain]
	if !ok {
		return nil, nil
	}

	// Return a copy to avoid shared references
	cp := *rec
	return &cp, nil
}

// Set stores one account's token record, replacing any previous one
func (s *InMemoryStore) Set(subdomain string, rec *amocrm.TokenRecord) error {
	if subdomain == "" {
		return fmt.Errorf("subdomain cannot be empty")
	}
	if rec == nil {
		return fmt.Errorf("token record cannot be nil")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	cp := *rec
	s.records[subdomain] = &cp
	return nil
}

// All returns every connected account's token record keyed by subdomain
func (s *InMemoryStore) All() (map[string]*amocrm.TokenRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make(map[string]*amocrm.TokenRecord, len(s.records))
	for sd, rec := range s.records {
		cp := *rec
		out[sd] = &cp
	}
	return out, nil
}
