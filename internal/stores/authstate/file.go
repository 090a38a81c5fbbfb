package authstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps pending OAuth states in a JSON file keyed by state string.
// Expired entries are dropped lazily on read and in bulk by Purge.
type FileStore struct {
	path  string
	mutex sync.Mutex

	// now is the clock, swapped in tests to age states instantly.
	now func() int64
}

// NewFileStore creates a file-backed state store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		now:  func() int64 { return time.Now().Unix() },
	}
}

// Put records a pending handshake for the given state string.
func (s *FileStore) Put(state, subdomain string) error {
	if state == "" {
		return fmt.Errorf("state cannot be empty")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	all[state] = &State{Subdomain: subdomain, TS: s.now()}
	return s.save(all)
}

// Get resolves a state string, (nil, nil) when unknown or expired. An
// expired entry is removed on the way out.
func (s *FileStore) Get(state string) (*State, error) {
	if state == "" {
		return nil, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	all, err := s.load()
	if err != nil {
		return nil, err
	}
	item, ok := all[state]
	if !ok {
		return nil, nil
	}

	if s.expired(item) {
		delete(all, state)
		if err := s.save(all); err != nil {
			return nil, err
		}
		return nil, nil
	}

	cp := *item
	return &cp, nil
}

// Purge drops every expired state in one pass.
func (s *FileStore) Purge() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}

	changed := false
	for state, item := range all {
		if s.expired(item) {
			delete(all, state)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(all)
}

func (s *FileStore) expired(item *State) bool {
	return s.now()-item.TS > int64(TTL.Seconds())
}

func (s *FileStore) load() (map[string]*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]*State{}, nil
	}

	all := map[string]*State{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	return all, nil
}

func (s *FileStore) save(all map[string]*State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
