package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemorySection_Defaults verifies the out-of-the-box settings.
func TestMemorySection_Defaults(t *testing.T) {
	s := NewMemorySection()

	assert.Equal(t, SectionIDMemory, s.ID())
	assert.Equal(t, DefaultTokenBudget, s.GetTokenBudget())
	assert.Equal(t, DefaultKeepRecent, s.GetKeepRecent())
	assert.Equal(t, DefaultRecallTopK, s.GetRecallTopK())
	assert.Equal(t, DefaultRecallTokenBudget, s.GetRecallTokenBudget())
	assert.NoError(t, s.Validate())
}

// TestMemorySection_SetData verifies values load from the numeric types
// JSON decoding produces.
func TestMemorySection_SetData(t *testing.T) {
	t.Run("json float64 values", func(t *testing.T) {
		s := NewMemorySection()
		err := s.SetData(map[string]interface{}{
			"token_budget":        float64(8000),
			"keep_recent":         float64(5),
			"recall_top_k":        float64(7),
			"recall_token_budget": float64(900),
			"session_dir":         "/var/lib/ember",
		})
		require.NoError(t, err)

		assert.Equal(t, 8000, s.GetTokenBudget())
		assert.Equal(t, 5, s.GetKeepRecent())
		assert.Equal(t, 7, s.GetRecallTopK())
		assert.Equal(t, 900, s.GetRecallTokenBudget())
		assert.Equal(t, "/var/lib/ember", s.GetSessionDir())
	})

	t.Run("native int values", func(t *testing.T) {
		s := NewMemorySection()
		require.NoError(t, s.SetData(map[string]interface{}{"token_budget": 123}))
		assert.Equal(t, 123, s.GetTokenBudget())
	})

	t.Run("unknown and mistyped keys are ignored", func(t *testing.T) {
		s := NewMemorySection()
		require.NoError(t, s.SetData(map[string]interface{}{
			"token_budget": "not a number",
			"mystery":      true,
		}))
		assert.Equal(t, DefaultTokenBudget, s.GetTokenBudget())
	})

	t.Run("nil data is a no-op", func(t *testing.T) {
		s := NewMemorySection()
		require.NoError(t, s.SetData(nil))
		assert.Equal(t, DefaultTokenBudget, s.GetTokenBudget())
	})
}

// TestMemorySection_Validate verifies limits must be positive.
func TestMemorySection_Validate(t *testing.T) {
	tests := []struct {
		name string
		data map[string]interface{}
	}{
		{"zero token budget", map[string]interface{}{"token_budget": 0}},
		{"negative keep recent", map[string]interface{}{"keep_recent": -1}},
		{"zero recall top k", map[string]interface{}{"recall_top_k": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemorySection()
			require.NoError(t, s.SetData(tt.data))
			assert.Error(t, s.Validate())
		})
	}
}

// TestMemorySection_Reset verifies defaults come back.
func TestMemorySection_Reset(t *testing.T) {
	s := NewMemorySection()
	require.NoError(t, s.SetData(map[string]interface{}{"token_budget": 42}))
	s.Reset()
	assert.Equal(t, DefaultTokenBudget, s.GetTokenBudget())
}

// TestMemorySection_DataRoundTrip verifies Data feeds back through
// SetData unchanged.
func TestMemorySection_DataRoundTrip(t *testing.T) {
	s := NewMemorySection()
	require.NoError(t, s.SetData(map[string]interface{}{"token_budget": 777}))

	fresh := NewMemorySection()
	require.NoError(t, fresh.SetData(s.Data()))
	assert.Equal(t, 777, fresh.GetTokenBudget())
}
