package context

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/ember/pkg/agent/memory"
	"github.com/entrhq/ember/pkg/llm"
	"github.com/entrhq/ember/pkg/types"
)

const (
	// defaultLLMTimeout bounds each summarization call. On expiry the
	// extractive fallback takes over; there are no retries.
	defaultLLMTimeout = 30 * time.Second

	// maxSummaryChars caps generated and fallback summary text before
	// the session clamps it further for monotonicity.
	maxSummaryChars = 2000
)

// BudgetCompressionStrategy folds the oldest eligible spans of the active
// window into summaries until the session fits the token budget or
// nothing eligible remains. The most recent keepRecent entities and
// retention-exempt messages are never touched.
type BudgetCompressionStrategy struct {
	keepRecent int
	llmTimeout time.Duration
}

// NewBudgetCompressionStrategy creates the strategy. keepRecent is
// clamped to at least 1 so the latest turn always survives verbatim.
func NewBudgetCompressionStrategy(keepRecent int) *BudgetCompressionStrategy {
	if keepRecent < 1 {
		keepRecent = 1
	}
	return &BudgetCompressionStrategy{
		keepRecent: keepRecent,
		llmTimeout: defaultLLMTimeout,
	}
}

// Name returns the strategy identifier.
func (s *BudgetCompressionStrategy) Name() string {
	return "BudgetCompression"
}

// ShouldRun triggers when the active window exceeds the budget.
func (s *BudgetCompressionStrategy) ShouldRun(_ *memory.Session, currentTokens, budget int) bool {
	if budget <= 0 {
		return false
	}
	return currentTokens > budget
}

// Compress repeatedly takes the oldest eligible span, produces summary
// text (delegated to the provider, extractive fallback on failure), and
// splices the summary into the session. Stops when under budget or when
// no eligible span remains.
func (s *BudgetCompressionStrategy) Compress(ctx context.Context, sess *memory.Session, provider llm.Provider, budget int) (int, error) {
	// Recency bonuses are relative to the current log size; refresh them
	// before selecting spans so old messages have actually aged.
	sess.Rescore()

	total := 0

	for {
		span := sess.OldestEligibleSpan(s.keepRecent)
		if len(span) == 0 {
			break
		}

		text := s.summaryText(ctx, span, provider)
		if _, ok := sess.Compress(span, text, s.keepRecent); !ok {
			// Span went stale between selection and splice; nothing more
			// to do safely.
			break
		}
		total += len(span)

		if sess.ActiveTokens() <= budget {
			break
		}
	}

	return total, nil
}

// summaryText produces the stand-in text for a span. The provider call is
// bounded by a timeout and any failure falls back to deterministic
// extractive truncation, so this never blocks the pipeline and never
// errors.
func (s *BudgetCompressionStrategy) summaryText(ctx context.Context, span []*memory.Message, provider llm.Provider) string {
	if provider == nil {
		return extractiveSummary(span, maxSummaryChars)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	response, err := provider.Complete(callCtx, []*types.Message{
		types.NewSystemMessage(
			"You are a memory encoder for a conversational assistant. " +
				"Your summary replaces a section of its conversation history; " +
				"the assistant must be able to continue seamlessly from your summary alone. " +
				"Be dense and specific.",
		),
		types.NewUserMessage(buildSummarizationPrompt(span)),
	})
	if err != nil || response == nil || strings.TrimSpace(response.Content) == "" {
		debugLog.Warnf("summarization call failed, using extractive fallback: %v", err)
		return extractiveSummary(span, maxSummaryChars)
	}

	text := "Summary of earlier conversation:\n" + strings.TrimSpace(response.Content)
	return truncate(text, maxSummaryChars)
}

// buildSummarizationPrompt renders the span for the summarization model.
// Decisions, requirements, errors, and code must survive the compression;
// filler must not.
func buildSummarizationPrompt(span []*memory.Message) string {
	var b strings.Builder

	b.WriteString("Summarize the following conversation section.\n\n")
	b.WriteString("MUST PRESERVE: decisions made, stated requirements, error messages, ")
	b.WriteString("file and function names, code snippets, unresolved questions.\n")
	b.WriteString("MUST NOT INCLUDE: greetings, acknowledgments, hedging, offers of help.\n\n")
	b.WriteString("Messages:\n\n")

	for _, m := range span {
		b.WriteString(fmt.Sprintf("[%s]: %s\n\n", m.Role, m.Content))
	}
	return b.String()
}
