package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewFileStore tests construction and eager loading.
func TestNewFileStore(t *testing.T) {
	t.Run("missing file starts empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		store, err := NewFileStore(path)
		require.NoError(t, err)

		assert.Equal(t, path, store.Path())
		data, err := store.GetSection("memory")
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("existing file is loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		raw := `{"version":"1.0","sections":{"memory":{"token_budget":4000}}}`
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

		store, err := NewFileStore(path)
		require.NoError(t, err)

		data, err := store.GetSection("memory")
		require.NoError(t, err)
		assert.Equal(t, float64(4000), data["token_budget"])
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))

		_, err := NewFileStore(path)
		assert.Error(t, err)
	})
}

// TestFileStore_SaveLoad tests the disk round trip.
func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SetSection("memory", map[string]interface{}{
		"token_budget": 4000,
		"session_dir":  "/tmp/sessions",
	}))
	require.NoError(t, store.Save())

	// No stray temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	reloaded, err := NewFileStore(path)
	require.NoError(t, err)
	data, err := reloaded.GetSection("memory")
	require.NoError(t, err)
	assert.Equal(t, float64(4000), data["token_budget"])
	assert.Equal(t, "/tmp/sessions", data["session_dir"])
}

// TestFileStore_SectionCopies verifies callers cannot mutate the store
// through returned maps.
func TestFileStore_SectionCopies(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	original := map[string]interface{}{"key": "value"}
	require.NoError(t, store.SetSection("s", original))
	original["key"] = "mutated"

	got, err := store.GetSection("s")
	require.NoError(t, err)
	assert.Equal(t, "value", got["key"])

	got["key"] = "mutated again"
	again, err := store.GetSection("s")
	require.NoError(t, err)
	assert.Equal(t, "value", again["key"])
}

// TestManager_Sections tests registration and persistence through the
// manager.
func TestManager_Sections(t *testing.T) {
	t.Run("duplicate registration is an error", func(t *testing.T) {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
		require.NoError(t, err)

		m := NewManager(store)
		require.NoError(t, m.RegisterSection(NewMemorySection()))
		assert.Error(t, m.RegisterSection(NewMemorySection()))
	})

	t.Run("load applies persisted values and save round-trips", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		raw := `{"version":"1.0","sections":{"memory":{"token_budget":2500}}}`
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

		store, err := NewFileStore(path)
		require.NoError(t, err)

		m := NewManager(store)
		mem := NewMemorySection()
		require.NoError(t, m.RegisterSection(mem))
		require.NoError(t, m.LoadAll())
		assert.Equal(t, 2500, mem.GetTokenBudget())

		// Change, save, reload through a fresh manager.
		require.NoError(t, mem.SetData(map[string]interface{}{"keep_recent": 4}))
		require.NoError(t, m.SaveAll())

		store2, err := NewFileStore(path)
		require.NoError(t, err)
		m2 := NewManager(store2)
		mem2 := NewMemorySection()
		require.NoError(t, m2.RegisterSection(mem2))
		require.NoError(t, m2.LoadAll())

		assert.Equal(t, 2500, mem2.GetTokenBudget())
		assert.Equal(t, 4, mem2.GetKeepRecent())
	})

	t.Run("invalid persisted values fail load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		raw := `{"version":"1.0","sections":{"memory":{"token_budget":-5}}}`
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

		store, err := NewFileStore(path)
		require.NoError(t, err)

		m := NewManager(store)
		require.NoError(t, m.RegisterSection(NewMemorySection()))
		assert.Error(t, m.LoadAll())
	})

	t.Run("sections absent from the store keep defaults", func(t *testing.T) {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
		require.NoError(t, err)

		m := NewManager(store)
		mem := NewMemorySection()
		require.NoError(t, m.RegisterSection(mem))
		require.NoError(t, m.LoadAll())
		assert.Equal(t, DefaultTokenBudget, mem.GetTokenBudget())
	})
}
