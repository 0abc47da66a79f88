package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const storeVersion = "1.0"

// Store persists section data.
type Store interface {
	// Load reads persisted data from disk. A missing file is not an
	// error: the store starts empty.
	Load() error

	// Save writes all data to disk atomically.
	Save() error

	// GetSection returns a copy of one section's persisted data.
	GetSection(sectionID string) (map[string]interface{}, error)

	// SetSection stores one section's data.
	SetSection(sectionID string, data map[string]interface{}) error
}

// FileStore implements Store with a single JSON file, written via a
// temporary file and rename so a crash never leaves a torn config.
type FileStore struct {
	path    string
	data    map[string]map[string]interface{}
	version string
	mu      sync.RWMutex
}

// NewFileStore creates a store at path; an empty path defaults to
// ~/.ember/config.json. An existing file is loaded eagerly.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config: resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".ember", "config.json")
	}

	s := &FileStore{
		path:    path,
		data:    make(map[string]map[string]interface{}),
		version: storeVersion,
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

type storeFile struct {
	Version  string                            `json:"version"`
	Sections map[string]map[string]interface{} `json:"sections"`
}

// Load reads the configuration file.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = make(map[string]map[string]interface{})
			return nil
		}
		return fmt.Errorf("config: read %s: %w", s.path, err)
	}

	var f storeFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("config: parse %s: %w", s.path, err)
	}

	if f.Version != "" {
		s.version = f.Version
	}
	if f.Sections != nil {
		s.data = f.Sections
	} else {
		s.data = make(map[string]map[string]interface{})
	}
	return nil
}

// Save writes the configuration file atomically.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("config: create config directory: %w", err)
	}

	raw, err := json.MarshalIndent(storeFile{Version: s.version, Sections: s.data}, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("config: atomic rename: %w", err)
	}
	return nil
}

// GetSection returns a copy of one section's data; an unknown section is
// an empty map.
func (s *FileStore) GetSection(sectionID string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[sectionID]
	if !ok {
		return map[string]interface{}{}, nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out, nil
}

// SetSection stores a copy of one section's data.
func (s *FileStore) SetSection(sectionID string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make(map[string]interface{}, len(data))
	for k, v := range data {
		stored[k] = v
	}
	s.data[sectionID] = stored
	return nil
}

// Path returns the file path of the store.
func (s *FileStore) Path() string { return s.path }
