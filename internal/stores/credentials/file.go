package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/watereef7/loss-control-backend/pkg/amocrm"
)

// FileStore persists per-account OAuth credentials in a single JSON file
// keyed by subdomain. It exists for deployments without a database; writes
// go through a temp file and rename so a crash never leaves a torn file.
type FileStore struct {
	path  string
	mutex sync.Mutex
}

// NewFileStore creates a file-backed credential store at path. The parent
// directory is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get retrieves one account's token record, (nil, nil) when the account has
// never connected
func (s *FileStore) Get(subdomain string) (*amocrm.TokenRecord, error) {
	if subdomain == "" {
		return nil, fmt.Errorf("subdomain cannot be empty")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	all, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := all[subdomain]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// Set stores one account's token record, replacing any previous one
func (s *FileStore) Set(subdomain string, rec *amocrm.TokenRecord) error {
	if subdomain == "" {
		return fmt.Errorf("subdomain cannot be empty")
	}
	if rec == nil {
		return fmt.Errorf("token record cannot be nil")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	cp := *rec
	all[subdomain] = &cp
	return s.save(all)
}

// All returns every connected account's token record keyed by subdomain
func (s *FileStore) All() (map[string]*amocrm.TokenRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	all, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]*amocrm.TokenRecord, len(all))
	for sd, rec := range all {
		cp := *rec
		out[sd] = &cp
	}
	return out, nil
}

// load reads the token file. A missing or unreadable file counts as empty so
// a fresh deployment starts clean.
func (s *FileStore) load() (map[string]*amocrm.TokenRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]*amocrm.TokenRecord{}, nil
	}

	all := map[string]*amocrm.TokenRecord{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse token file %s: %w", s.path, err)
	}
	return all, nil
}

func (s *FileStore) save(all map[string]*amocrm.TokenRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}
