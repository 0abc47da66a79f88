// Package config provides Ember's sectioned configuration: typed
// sections registered with a Manager that round-trips them through a
// JSON file store.
package config

import (
	"fmt"
	"sync"
)

// Section is one named block of configuration with its own defaults,
// validation, and typed accessors.
type Section interface {
	// ID is the stable key the section is stored under.
	ID() string

	// Title is a short human-readable name.
	Title() string

	// Description explains what the section controls.
	Description() string

	// Data returns the section's current values as a serializable map.
	Data() map[string]interface{}

	// SetData applies values loaded from the store. Unknown keys are
	// ignored; missing keys keep their current values.
	SetData(data map[string]interface{}) error

	// Validate checks the current values.
	Validate() error

	// Reset restores defaults.
	Reset()
}

// Manager owns the registered sections and their persistence.
type Manager struct {
	store    Store
	sections map[string]Section
	mu       sync.RWMutex
}

// NewManager creates a manager backed by the given store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sections: make(map[string]Section),
	}
}

// RegisterSection adds a section. Registering the same id twice is an
// error.
func (m *Manager) RegisterSection(s Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sections[s.ID()]; exists {
		return fmt.Errorf("config: section %q already registered", s.ID())
	}
	m.sections[s.ID()] = s
	return nil
}

// GetSection returns a registered section by id.
func (m *Manager) GetSection(id string) (Section, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sections[id]
	return s, ok
}

// LoadAll reads the store and applies each section's persisted values,
// then validates. Sections absent from the store keep their defaults.
func (m *Manager) LoadAll() error {
	if err := m.store.Load(); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, section := range m.sections {
		data, err := m.store.GetSection(id)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			continue
		}
		if err := section.SetData(data); err != nil {
			return fmt.Errorf("config: apply section %q: %w", id, err)
		}
		if err := section.Validate(); err != nil {
			return fmt.Errorf("config: section %q invalid: %w", id, err)
		}
	}
	return nil
}

// SaveAll writes every section's current values to the store.
func (m *Manager) SaveAll() error {
	m.mu.RLock()
	for id, section := range m.sections {
		if err := m.store.SetSection(id, section.Data()); err != nil {
			m.mu.RUnlock()
			return err
		}
	}
	m.mu.RUnlock()
	return m.store.Save()
}
