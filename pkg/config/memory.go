package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// SectionIDMemory is the identifier for the conversation memory section.
const SectionIDMemory = "memory"

// Defaults for the memory section.
const (
	DefaultTokenBudget       = 6000
	DefaultKeepRecent        = 10
	DefaultRecallTopK        = 3
	DefaultRecallTokenBudget = 1500
	defaultSessionDir        = "~/.ember/sessions"
)

// MemorySection holds the conversation memory settings: the active-window
// token ceiling, the always-verbatim recent tail, recall limits, and
// where sessions are persisted.
type MemorySection struct {
	TokenBudget       int
	KeepRecent        int
	RecallTopK        int
	RecallTokenBudget int
	SessionDir        string
	mu                sync.RWMutex
}

// NewMemorySection creates the section with default settings.
func NewMemorySection() *MemorySection {
	return &MemorySection{
		TokenBudget:       DefaultTokenBudget,
		KeepRecent:        DefaultKeepRecent,
		RecallTopK:        DefaultRecallTopK,
		RecallTokenBudget: DefaultRecallTokenBudget,
		SessionDir:        defaultSessionDir,
	}
}

// ID returns the section identifier.
func (s *MemorySection) ID() string { return SectionIDMemory }

// Title returns the section title.
func (s *MemorySection) Title() string { return "Conversation Memory" }

// Description returns the section description.
func (s *MemorySection) Description() string {
	return "Controls context compression and recall: token budget for the active window, " +
		"size of the always-uncompressed recent tail, recall limits, and session storage location."
}

// Data returns the current configuration data.
func (s *MemorySection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"token_budget":        s.TokenBudget,
		"keep_recent":         s.KeepRecent,
		"recall_top_k":        s.RecallTopK,
		"recall_token_budget": s.RecallTokenBudget,
		"session_dir":         s.SessionDir,
	}
}

// SetData updates the configuration from the provided data.
func (s *MemorySection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := asInt(data["token_budget"]); ok {
		s.TokenBudget = v
	}
	if v, ok := asInt(data["keep_recent"]); ok {
		s.KeepRecent = v
	}
	if v, ok := asInt(data["recall_top_k"]); ok {
		s.RecallTopK = v
	}
	if v, ok := asInt(data["recall_token_budget"]); ok {
		s.RecallTokenBudget = v
	}
	if v, ok := data["session_dir"].(string); ok && v != "" {
		s.SessionDir = v
	}
	return nil
}

// Validate checks the current configuration.
func (s *MemorySection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.TokenBudget < 1 {
		return fmt.Errorf("config: token_budget must be positive, got %d", s.TokenBudget)
	}
	if s.KeepRecent < 1 {
		return fmt.Errorf("config: keep_recent must be positive, got %d", s.KeepRecent)
	}
	if s.RecallTopK < 1 {
		return fmt.Errorf("config: recall_top_k must be positive, got %d", s.RecallTopK)
	}
	return nil
}

// Reset restores default configuration.
func (s *MemorySection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TokenBudget = DefaultTokenBudget
	s.KeepRecent = DefaultKeepRecent
	s.RecallTopK = DefaultRecallTopK
	s.RecallTokenBudget = DefaultRecallTokenBudget
	s.SessionDir = defaultSessionDir
}

// GetTokenBudget returns the active-window token ceiling.
func (s *MemorySection) GetTokenBudget() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.TokenBudget
}

// GetKeepRecent returns the size of the always-uncompressed tail.
func (s *MemorySection) GetKeepRecent() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.KeepRecent
}

// GetRecallTopK returns the number of chunks recalled per query.
func (s *MemorySection) GetRecallTopK() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RecallTopK
}

// GetRecallTokenBudget returns the recall token sub-budget.
func (s *MemorySection) GetRecallTokenBudget() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RecallTokenBudget
}

// GetSessionDir returns the session storage directory with a leading ~
// expanded to the user's home.
func (s *MemorySection) GetSessionDir() string {
	s.mu.RLock()
	dir := s.SessionDir
	s.mu.RUnlock()
	return expandHome(dir)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// asInt accepts the numeric types JSON decoding and direct assignment
// produce.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
