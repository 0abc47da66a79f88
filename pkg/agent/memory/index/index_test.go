package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTokenize tests normalization and identifier splitting.
func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain words lowercased",
			text: "Hello, World!",
			want: []string{"hello", "world"},
		},
		{
			name: "camelCase emits humps",
			text: "ParseConfig",
			want: []string{"parseconfig", "parse", "config"},
		},
		{
			name: "snake_case emits parts",
			text: "session_store",
			want: []string{"session_store", "session", "store"},
		},
		{
			name: "digits kept in tokens",
			text: "error 404 handler",
			want: []string{"error", "404", "handler"},
		},
		{
			name: "punctuation separates",
			text: "a.b(c)",
			want: []string{"a", "b", "c"},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "single-word identifier emits no subtokens",
			text: "Config",
			want: []string{"config"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

// TestTermIndex_Add tests incremental insertion.
func TestTermIndex_Add(t *testing.T) {
	t.Run("documents are counted", func(t *testing.T) {
		ix := New()
		ix.Add(1, "alpha beta")
		ix.Add(2, "gamma delta")

		assert.Equal(t, 2, ix.DocumentCount())
		assert.True(t, ix.Contains(1))
		assert.False(t, ix.Contains(3))
	})

	t.Run("re-adding an id is a no-op", func(t *testing.T) {
		ix := New()
		ix.Add(1, "alpha beta")
		ix.Add(1, "totally different text")

		assert.Equal(t, 1, ix.DocumentCount())

		// The original content is still what matches.
		results := ix.Query("alpha", 10)
		require.Len(t, results, 1)
		assert.Equal(t, uint64(1), results[0].DocID)
		assert.Empty(t, ix.Query("totally different", 10))
	})

	t.Run("content without tokens is skipped", func(t *testing.T) {
		ix := New()
		ix.Add(1, "!!! ---")
		assert.Equal(t, 0, ix.DocumentCount())
		assert.False(t, ix.Contains(1))
	})
}

// TestTermIndex_Query tests ranking, limits, and determinism.
func TestTermIndex_Query(t *testing.T) {
	build := func() *TermIndex {
		ix := New()
		ix.Add(1, "the database connection pool settings")
		ix.Add(2, "how do I bake bread at home")
		ix.Add(3, "database migration ran with errors")
		return ix
	}

	t.Run("most relevant document ranks first", func(t *testing.T) {
		ix := build()
		results := ix.Query("database connection", 10)
		require.NotEmpty(t, results)
		assert.Equal(t, uint64(1), results[0].DocID)
	})

	t.Run("only documents sharing a term are scored", func(t *testing.T) {
		ix := build()
		results := ix.Query("database", 10)
		require.Len(t, results, 2)
		for _, r := range results {
			assert.NotEqual(t, uint64(2), r.DocID)
		}
	})

	t.Run("k bounds the result count", func(t *testing.T) {
		ix := build()
		assert.Len(t, ix.Query("database", 1), 1)
		assert.Nil(t, ix.Query("database", 0))
		assert.Nil(t, ix.Query("database", -1))
	})

	t.Run("no overlap means no results", func(t *testing.T) {
		ix := build()
		assert.Empty(t, ix.Query("quantum entanglement", 10))
	})

	t.Run("query with no tokens", func(t *testing.T) {
		ix := build()
		assert.Nil(t, ix.Query("...", 10))
	})

	t.Run("empty index", func(t *testing.T) {
		ix := New()
		assert.Nil(t, ix.Query("anything", 10))
	})

	t.Run("equal scores break toward the more recent id", func(t *testing.T) {
		ix := New()
		ix.Add(7, "alpha")
		ix.Add(9, "alpha")

		results := ix.Query("alpha", 10)
		require.Len(t, results, 2)
		assert.Equal(t, uint64(9), results[0].DocID)
		assert.Equal(t, uint64(7), results[1].DocID)
	})

	t.Run("repeated queries return the same ranking", func(t *testing.T) {
		ix := build()
		order := func(results []Result) []uint64 {
			ids := make([]uint64, len(results))
			for i, r := range results {
				ids[i] = r.DocID
			}
			return ids
		}
		first := order(ix.Query("database connection pool", 10))
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, order(ix.Query("database connection pool", 10)))
		}
	})
}

// TestTermIndex_Incremental verifies inserts after queries take effect
// without any rebuild step.
func TestTermIndex_Incremental(t *testing.T) {
	ix := New()
	ix.Add(1, "first entry about caching")

	assert.Empty(t, ix.Query("sharding", 10))

	ix.Add(2, "notes on database sharding")
	results := ix.Query("sharding", 10)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(2), results[0].DocID)
	assert.Equal(t, 2, ix.DocumentCount())
}

// TestTermIndex_CamelCaseMatching verifies identifier humps match plain
// word queries.
func TestTermIndex_CamelCaseMatching(t *testing.T) {
	ix := New()
	ix.Add(1, "the bug is in ParseConfig")
	ix.Add(2, "unrelated chatter")

	results := ix.Query("parse", 10)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(1), results[0].DocID)
}
