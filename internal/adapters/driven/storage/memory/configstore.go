package memory

import (
	"sync"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is an in-memory implementation of driven.ConfigStore for testing.
type ConfigStore struct {
	mu  sync.RWMutex
	cfg *domain.Config
}

// NewConfigStore creates a new in-memory config store. A nil config holds
// the defaults.
func NewConfigStore(cfg *domain.Config) *ConfigStore {
	if cfg == nil {
		cfg = domain.DefaultConfig()
	}
	return &ConfigStore{cfg: cfg}
}

// Load validates and returns the held configuration.
func (s *ConfigStore) Load() (*domain.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	return s.cfg, nil
}

// Save replaces the held configuration.
func (s *ConfigStore) Save(cfg *domain.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

// Path returns an empty path; nothing is persisted.
func (s *ConfigStore) Path() string {
	return ""
}
