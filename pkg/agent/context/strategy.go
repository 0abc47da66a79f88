package context

import (
	"context"

	"github.com/entrhq/ember/pkg/agent/memory"
	"github.com/entrhq/ember/pkg/llm"
)

// Strategy is one approach to shrinking a session's active window.
// Strategies are evaluated in order by the Manager on every turn.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// ShouldRun reports whether the strategy should execute this turn,
	// given the session, its current active token estimate, and the
	// configured budget.
	ShouldRun(sess *memory.Session, currentTokens, budget int) bool

	// Compress performs the reduction in place and returns how many
	// messages were folded into summaries. Provider failures must be
	// absorbed by a local fallback, never returned: the per-turn cycle
	// cannot stall on the external summarization capability.
	Compress(ctx context.Context, sess *memory.Session, provider llm.Provider, budget int) (int, error)
}
