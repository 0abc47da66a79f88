package config

import "sync"

var (
	// globalManager is the process-wide configuration manager.
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates the global configuration manager, registers the
// default sections, and loads persisted values. Call once at startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager := NewManager(store)
	if err := manager.RegisterSection(NewMemorySection()); err != nil {
		return err
	}
	if err := manager.RegisterSection(NewLLMSection()); err != nil {
		return err
	}
	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager. Panics if Initialize
// has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized reports whether the global configuration is available.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetMemory returns the memory section from global config, or nil when
// config is not initialized.
func GetMemory() *MemorySection {
	if !IsInitialized() {
		return nil
	}
	section, ok := Global().GetSection(SectionIDMemory)
	if !ok {
		return nil
	}
	mem, ok := section.(*MemorySection)
	if !ok {
		return nil
	}
	return mem
}

// GetLLM returns the LLM section from global config, or nil when config
// is not initialized.
func GetLLM() *LLMSection {
	if !IsInitialized() {
		return nil
	}
	section, ok := Global().GetSection(SectionIDLLM)
	if !ok {
		return nil
	}
	llm, ok := section.(*LLMSection)
	if !ok {
		return nil
	}
	return llm
}
