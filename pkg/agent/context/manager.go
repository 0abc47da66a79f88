// Package context manages the token budget of a session's active window:
// it decides when compression runs and orchestrates the strategies that
// perform it, then assembles the context payload for the outbound
// request.
package context

import (
	"context"
	"sync"

	"github.com/entrhq/ember/pkg/agent/memory"
	"github.com/entrhq/ember/pkg/llm"
	"github.com/entrhq/ember/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("context")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("failed to initialize context logger, using stderr fallback: %v", err)
	}
}

// Manager evaluates compression strategies against the configured token
// budget. The check runs synchronously before each outbound request is
// assembled: it is a blocking step of the per-turn cycle, not a
// background task.
type Manager struct {
	strategies         []Strategy
	provider           llm.Provider
	summarizationModel string
	budget             int
	mu                 sync.RWMutex // protects provider and summarizationModel
}

// NewManager creates a manager with the given budget and strategies,
// evaluated in the order provided. The provider may be nil; compression
// then always uses the extractive fallback.
func NewManager(provider llm.Provider, budget int, strategies ...Strategy) *Manager {
	return &Manager{
		strategies: strategies,
		provider:   provider,
		budget:     budget,
	}
}

// SetProvider swaps the LLM provider, e.g. after a config reload.
func (m *Manager) SetProvider(provider llm.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provider = provider
}

// SetSummarizationModel directs summarization calls at a different model.
// Empty means the provider's own model. Takes effect only when the
// provider implements llm.ModelCloner.
func (m *Manager) SetSummarizationModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summarizationModel = model
}

// SetBudget updates the active-window token ceiling.
func (m *Manager) SetBudget(budget int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budget = budget
}

// Budget returns the active-window token ceiling.
func (m *Manager) Budget() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.budget
}

// providerForSummarization resolves the provider for summarization calls,
// applying the model override when the provider supports cloning.
func (m *Manager) providerForSummarization() llm.Provider {
	m.mu.RLock()
	provider := m.provider
	model := m.summarizationModel
	m.mu.RUnlock()

	if model == "" || provider == nil {
		return provider
	}
	if cloner, ok := provider.(llm.ModelCloner); ok {
		return cloner.CloneWithModel(model)
	}
	return provider
}

// CheckAndCompress compares the session's active token estimate against
// the budget and runs each willing strategy in order. Returns the total
// number of messages compressed. Compression is monotonic: the active
// token total after a pass is never higher than before it.
func (m *Manager) CheckAndCompress(ctx context.Context, sess *memory.Session) (int, error) {
	budget := m.Budget()
	current := sess.ActiveTokens()
	total := 0

	for _, strategy := range m.strategies {
		if !strategy.ShouldRun(sess, current, budget) {
			continue
		}

		debugLog.Debugf("strategy %s triggered (%d tokens, budget %d)",
			strategy.Name(), current, budget)

		compressed, err := strategy.Compress(ctx, sess, m.providerForSummarization(), budget)
		if err != nil {
			return total, err
		}
		total += compressed

		after := sess.ActiveTokens()
		debugLog.Infof("strategy %s compressed %d messages (%d -> %d tokens)",
			strategy.Name(), compressed, current, after)
		current = after
	}

	return total, nil
}
