package credentials

import (
	"errors"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/watereef7/loss-control-backend/pkg/amocrm"
)

// Store persists per-account OAuth credentials in MySQL
type Store struct {
	db *gorm.DB
}

// NewStore creates a new credential store with a MySQL connection
func NewStore(databaseURL string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}

	// Auto-migrate tables
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return store, nil
}

// migrate creates or updates the required database tables
func (s *Store) migrate() error {
	return s.db.AutoMigrate(&TokenModel{})
}

// Get retrieves one account's token record, (nil, nil) when the account has
// never connected
func (s *Store) Get(subdomain string) (*amocrm.TokenRecord, error) {
	if subdomain == "" {
		return nil, fmt.Errorf("subdomain cannot be empty")
	}

	var model TokenModel
	result := s.db.Where("subdomain = ?", subdomain).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token record: %w", result.Error)
	}

	return recordFromModel(&model), nil
}

// Set stores one account's token record, replacing any previous one
func (s *Store) Set(subdomain string, rec *amocrm.TokenRecord) error {
	if subdomain == "" {
		return fmt.Errorf("subdomain cannot be empty")
	}
	if rec == nil {
		return fmt.Errorf("token record cannot be nil")
	}

	// Check if the account already has a record
	var existing TokenModel
	result := s.db.Where("subdomain = ?", subdomain).First(&existing)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			model := &TokenModel{
				Subdomain:    subdomain,
				AccessToken:  rec.AccessToken,
				RefreshToken: rec.RefreshToken,
				ExpiresAt:    rec.ExpiresAt,
				BaseURL:      rec.BaseURL,
			}
			if err := s.db.Create(model).Error; err != nil {
				return fmt.Errorf("failed to create token record: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to check existing token record: %w", result.Error)
	}

	// Update the existing record
	if err := s.db.Model(&existing).Updates(map[string]any{
		"access_token":  rec.AccessToken,
		"refresh_token": rec.RefreshToken,
		"expires_at":    rec.ExpiresAt,
		"base_url":      rec.BaseURL,
	}).Error; err != nil {
		return fmt.Errorf("failed to update token record: %w", err)
	}
	return nil
}

// All returns every connected account's token record keyed by subdomain
func (s *Store) All() (map[string]*amocrm.TokenRecord, error) {
	var models []TokenModel
	if err := s.db.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list token records: %w", err)
	}

	out := make(map[string]*amocrm.TokenRecord, len(models))
	for i := range models {
		out[models[i].Subdomain] = recordFromModel(&models[i])
	}
	return out, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}

func recordFromModel(m *TokenModel) *amocrm.TokenRecord {
	return &amocrm.TokenRecord{
		AccessToken:  m.AccessToken,
		RefreshToken: m.RefreshToken,
		ExpiresAt:    m.ExpiresAt,
		BaseURL:      m.BaseURL,
	}
}
