package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/ember/pkg/types"
)

// TestScorer_Score tests structural scoring signals.
func TestScorer_Score(t *testing.T) {
	tests := []struct {
		name    string
		role    types.MessageRole
		content string
		index   int
		total   int
		want    float64
	}{
		{
			name:    "short user message scores role weight only",
			role:    types.RoleUser,
			content: "hi",
			index:   0,
			total:   1,
			want:    0.1,
		},
		{
			name:    "short assistant message",
			role:    types.RoleAssistant,
			content: "hi",
			index:   0,
			total:   1,
			want:    0.15,
		},
		{
			name:    "system role gets the other-role weight",
			role:    types.RoleSystem,
			content: "hi",
			index:   0,
			total:   1,
			want:    0.05,
		},
		{
			name:    "decision keyword",
			role:    types.RoleUser,
			content: "we decided to use postgres",
			index:   0,
			total:   1,
			want:    0.3,
		},
		{
			name:    "keyword counted once even when several match",
			role:    types.RoleUser,
			content: "critical error, must fix",
			index:   0,
			total:   1,
			want:    0.3,
		},
		{
			name:    "long message gets the length bonus",
			role:    types.RoleUser,
			content: strings.Repeat("a", 201),
			index:   0,
			total:   1,
			want:    0.2,
		},
		{
			name:    "message at exactly the length cutoff gets no bonus",
			role:    types.RoleUser,
			content: strings.Repeat("a", 200),
			index:   0,
			total:   1,
			want:    0.1,
		},
		{
			name:    "code block alone reaches the exemption threshold",
			role:    types.RoleUser,
			content: "```go\nfunc main() {}\n```",
			index:   0,
			total:   1,
			want:    0.7,
		},
		{
			name:    "newest message gets the full recency bonus",
			role:    types.RoleUser,
			content: "hi",
			index:   9,
			total:   10,
			want:    0.2,
		},
		{
			name:    "oldest message gets no recency bonus",
			role:    types.RoleUser,
			content: "hi",
			index:   0,
			total:   10,
			want:    0.1,
		},
		{
			name:    "score is clamped to 1",
			role:    types.RoleAssistant,
			content: "```go\nerror handling\n```" + strings.Repeat("a", 200),
			index:   9,
			total:   10,
			want:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScorer()
			got := s.Score(tt.role, tt.content, tt.index, tt.total)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

// TestScorer_Exempt verifies which scores clear the retention threshold.
func TestScorer_Exempt(t *testing.T) {
	s := NewScorer()

	assert.True(t, s.Exempt(DefaultExemptThreshold))
	assert.True(t, s.Exempt(0.9))
	assert.False(t, s.Exempt(0.59))
	assert.False(t, s.Exempt(0))
}

// TestScorer_RecencyCannotFlipExemption verifies that without a code
// block, no combination of signals plus recency crosses the threshold.
// Age can reorder non-exempt messages but never manufacture exemption.
func TestScorer_RecencyCannotFlipExemption(t *testing.T) {
	s := NewScorer()

	// Keyword, length, assistant role, and maximum recency: the strongest
	// non-code message possible.
	content := "critical decision: " + strings.Repeat("a", 200)
	score := s.Score(types.RoleAssistant, content, 99, 100)

	assert.InDelta(t, 0.55, score, 1e-9)
	assert.False(t, s.Exempt(score))
}

// TestNewScorerWithThreshold tests threshold clamping.
func TestNewScorerWithThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"valid threshold", 0.8, 0.8},
		{"clamped below zero", -0.5, 0},
		{"clamped above one", 1.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScorerWithThreshold(tt.threshold)
			assert.Equal(t, tt.want, s.Threshold())
		})
	}
}
