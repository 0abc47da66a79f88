package context

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/ember/pkg/agent/memory"
	"github.com/entrhq/ember/pkg/types"
)

func span(contents ...string) []*memory.Message {
	msgs := make([]*memory.Message, len(contents))
	for i, c := range contents {
		msgs[i] = &memory.Message{
			ID:      uint64(i + 1),
			Role:    types.RoleUser,
			Content: c,
		}
	}
	return msgs
}

// TestExtractiveSummary_KeepsFacts verifies questions, decision lines,
// and code blocks survive distillation.
func TestExtractiveSummary_KeepsFacts(t *testing.T) {
	got := extractiveSummary(span(
		"thanks, that looks good to me overall",
		"we decided to ship the migration on friday",
		"what happens if the rollback fails halfway?",
		"here is the helper:\n```go\nfunc retry() {}\n```\nshould be enough",
	), 2000)

	assert.True(t, strings.HasPrefix(got, "Summary of earlier conversation:"))
	assert.Contains(t, got, "we decided to ship the migration on friday")
	assert.Contains(t, got, "what happens if the rollback fails halfway?")
	assert.Contains(t, got, "```go\nfunc retry() {}\n```")
	assert.NotContains(t, got, "looks good to me")
	assert.NotContains(t, got, "should be enough")
}

// TestExtractiveSummary_HeadTailFallback verifies small talk with no
// facts degrades to head/tail truncation rather than an empty summary.
func TestExtractiveSummary_HeadTailFallback(t *testing.T) {
	got := extractiveSummary(span(
		"let me think about this for a little while longer",
		"sure, take all the time that you need for it",
	), 2000)

	assert.True(t, strings.HasPrefix(got, "Summary of earlier conversation:"))
	assert.Contains(t, got, "[user]: let me think")
}

// TestDistillFacts_Dedupes verifies near-identical lines collapse.
func TestDistillFacts_Dedupes(t *testing.T) {
	got := distillFacts(span(
		"the deploy must finish before midnight tonight",
		"THE DEPLOY   MUST FINISH before midnight tonight",
	))

	assert.Equal(t, 1, strings.Count(strings.ToLower(got), "before midnight"))
}

// TestDistillFacts_ClosesUnterminatedCode verifies a span cut inside a
// code fence still yields a well-formed block.
func TestDistillFacts_ClosesUnterminatedCode(t *testing.T) {
	got := distillFacts(span("```go\nfunc partial() {"))

	assert.Contains(t, got, "func partial() {")
	assert.True(t, strings.HasSuffix(got, "```"))
}

// TestDistillFacts_SkipsPleasantries verifies short filler is dropped.
func TestDistillFacts_SkipsPleasantries(t *testing.T) {
	assert.Empty(t, distillFacts(span("ok", "thanks!", "sure")))
}

// TestHeadTail tests middle elision.
func TestHeadTail(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "short", headTail("short", 400))
	})

	t.Run("long text keeps both ends", func(t *testing.T) {
		text := strings.Repeat("a", 500) + strings.Repeat("b", 500)
		got := headTail(text, 100)
		assert.True(t, strings.HasPrefix(got, strings.Repeat("a", 100)))
		assert.True(t, strings.HasSuffix(got, strings.Repeat("b", 100)))
		assert.Contains(t, got, "[...]")
	})
}

// TestTruncate tests the hard character bound.
func TestTruncate(t *testing.T) {
	t.Run("under the limit unchanged", func(t *testing.T) {
		assert.Equal(t, "abc", truncate("abc", 10))
	})

	t.Run("over the limit is cut and marked", func(t *testing.T) {
		got := truncate(strings.Repeat("a", 50), 10)
		assert.True(t, strings.HasPrefix(got, strings.Repeat("a", 10)))
		assert.True(t, strings.HasSuffix(got, "[...truncated]"))
	})
}
