package memory

import (
	"strings"

	"github.com/entrhq/ember/pkg/types"
)

// DefaultExemptThreshold is the importance score at or above which a
// message is retention-exempt: compression carries it forward verbatim no
// matter how old it gets.
const DefaultExemptThreshold = 0.6

// Scoring weights. A fenced code block alone reaches the exemption
// threshold; everything else needs the threshold-crossing to come from
// structural signals, never from recency, so age can only break ties.
const (
	weightCodeBlock = 0.6
	weightKeyword   = 0.2
	weightLength    = 0.1
	weightRecency   = 0.1

	weightRoleAssistant = 0.15
	weightRoleUser      = 0.1
	weightRoleOther     = 0.05

	// substantiveLength is the content size above which a message is
	// considered substantive rather than conversational filler.
	substantiveLength = 200
)

// decisionKeywords signal decisions, requirements, or failures worth
// retaining through compression.
var decisionKeywords = []string{
	"decided",
	"agreed",
	"must",
	"requirement",
	"important",
	"error",
	"fix",
	"breaking",
	"critical",
}

// Scorer assigns retention-priority scores in [0, 1].
type Scorer struct {
	exemptThreshold float64
}

// NewScorer creates a scorer with the default exemption threshold.
func NewScorer() *Scorer {
	return &Scorer{exemptThreshold: DefaultExemptThreshold}
}

// NewScorerWithThreshold creates a scorer with a custom exemption
// threshold, clamped to [0, 1].
func NewScorerWithThreshold(threshold float64) *Scorer {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	return &Scorer{exemptThreshold: threshold}
}

// Score rates a message by structural signals plus a recency bonus.
// index is the message's position in the full log and total the log size
// at scoring time; the recency term scales from 0 (oldest) to
// weightRecency (newest).
func (s *Scorer) Score(role types.MessageRole, content string, index, total int) float64 {
	score := 0.0

	if strings.Contains(content, "```") {
		score += weightCodeBlock
	}

	lower := strings.ToLower(content)
	for _, kw := range decisionKeywords {
		if strings.Contains(lower, kw) {
			score += weightKeyword
			break
		}
	}

	if len(content) > substantiveLength {
		score += weightLength
	}

	switch role {
	case types.RoleAssistant:
		score += weightRoleAssistant
	case types.RoleUser:
		score += weightRoleUser
	default:
		score += weightRoleOther
	}

	if total > 1 {
		score += weightRecency * float64(index) / float64(total-1)
	}

	if score > 1 {
		score = 1
	}
	return score
}

// Exempt reports whether a score marks its message retention-exempt.
func (s *Scorer) Exempt(score float64) bool {
	return score >= s.exemptThreshold
}

// Threshold returns the scorer's exemption threshold.
func (s *Scorer) Threshold() float64 { return s.exemptThreshold }
