package config

import "sync"

// SectionIDLLM is the identifier for the LLM settings section.
const SectionIDLLM = "llm"

// LLMSection manages LLM provider settings. summarization_model is
// optional: when set, compression summaries use it instead of the main
// model.
type LLMSection struct {
	Model              string
	BaseURL            string
	APIKey             string
	SummarizationModel string
	mu                 sync.RWMutex
}

// NewLLMSection creates the section with default (empty) settings.
func NewLLMSection() *LLMSection {
	return &LLMSection{}
}

// ID returns the section identifier.
func (s *LLMSection) ID() string { return SectionIDLLM }

// Title returns the section title.
func (s *LLMSection) Title() string { return "LLM Settings" }

// Description returns the section description.
func (s *LLMSection) Description() string {
	return "LLM provider settings. summarization_model is optional; if set, " +
		"memory compression uses it instead of the main model."
}

// Data returns the current configuration data.
func (s *LLMSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"model":               s.Model,
		"base_url":            s.BaseURL,
		"api_key":             s.APIKey,
		"summarization_model": s.SummarizationModel,
	}
}

// SetData updates the configuration from the provided data.
func (s *LLMSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["model"].(string); ok {
		s.Model = v
	}
	if v, ok := data["base_url"].(string); ok {
		s.BaseURL = v
	}
	if v, ok := data["api_key"].(string); ok {
		s.APIKey = v
	}
	if v, ok := data["summarization_model"].(string); ok {
		s.SummarizationModel = v
	}
	return nil
}

// Validate always passes: LLM settings are optional and checked at use.
func (s *LLMSection) Validate() error { return nil }

// Reset restores default configuration.
func (s *LLMSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Model = ""
	s.BaseURL = ""
	s.APIKey = ""
	s.SummarizationModel = ""
}

// GetModel returns the configured model name.
func (s *LLMSection) GetModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Model
}

// GetBaseURL returns the configured base URL.
func (s *LLMSection) GetBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.BaseURL
}

// GetAPIKey returns the configured API key.
func (s *LLMSection) GetAPIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.APIKey
}

// GetSummarizationModel returns the summarization model override; empty
// means the main model.
func (s *LLMSection) GetSummarizationModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SummarizationModel
}
