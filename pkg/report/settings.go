package report

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings tunes how hard the builder leans on the provider API. Defaults
// suit a mid-size account; accounts with tens of thousands of open deals
// want a lower DeepCheckCap or a dedicated pipeline filter.
type Settings struct {
	// StaleDays is the default inactivity threshold when a request does not
	// carry its own.
	StaleDays int `yaml:"stale_days"`

	// PageLimit is the page size for lead listings, capped upstream at 250.
	PageLimit int `yaml:"page_limit"`

	// DirectoryPages bounds pagination of small directories (users, loss
	// reasons).
	DirectoryPages int `yaml:"directory_pages"`

	// LeadPages bounds pagination of lead listings.
	LeadPages int `yaml:"lead_pages"`

	// LookupPages bounds pagination of batched task and event lookups.
	LookupPages int `yaml:"lookup_pages"`

	// DeepCheckCap is the most stale candidates that get per-deal activity
	// resolution. Past the cap the report still returns, with a warning.
	DeepCheckCap int `yaml:"deep_check_cap"`

	// Workers is the per-deal lookup concurrency.
	Workers int `yaml:"workers"`

	// EventTypes overrides the activity event allow-list when non-empty.
	EventTypes []string `yaml:"event_types"`
}

// DefaultSettings returns the built-in tuning.
func DefaultSettings() Settings {
	return Settings{
		StaleDays:      7,
		PageLimit:      100,
		DirectoryPages: 10,
		LeadPages:      20,
		LookupPages:    20,
		DeepCheckCap:   200,
		Workers:        8,
	}
}

// LoadSettings reads a yaml settings file over the defaults. Fields the file
// leaves out keep their default values.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read report settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse report settings: %w", err)
	}
	return s.withDefaults(), nil
}

// withDefaults backfills zero or negative tunables so a sparse file cannot
// stall the builder.
func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.StaleDays <= 0 {
		s.StaleDays = def.StaleDays
	}
	if s.PageLimit <= 0 {
		s.PageLimit = def.PageLimit
	}
	if s.DirectoryPages <= 0 {
		s.DirectoryPages = def.DirectoryPages
	}
	if s.LeadPages <= 0 {
		s.LeadPages = def.LeadPages
	}
	if s.LookupPages <= 0 {
		s.LookupPages = def.LookupPages
	}
	if s.DeepCheckCap <= 0 {
		s.DeepCheckCap = def.DeepCheckCap
	}
	if s.Workers <= 0 {
		s.Workers = def.Workers
	}
	return s
}
