package context

import (
	"fmt"
	"strings"

	"github.com/entrhq/ember/pkg/agent/memory"
)

// Extractive fallback: when the summarization capability is unavailable,
// a span is distilled deterministically so compression never depends on
// the network. Kept lines are questions, lines carrying decision
// keywords, and fenced code blocks; if nothing qualifies, the head and
// tail of the span's text stand in.

const (
	// minDistillLength: shorter messages without code are pleasantries.
	minDistillLength = 20

	// headTailChars is how much of each end of the span's text survives
	// when distillation finds nothing worth keeping.
	headTailChars = 400
)

var fallbackKeywords = []string{
	"decided", "agreed", "must", "requirement", "important",
	"error", "fix", "breaking", "critical",
}

// extractiveSummary distills a span into a bounded summary string.
// Deterministic for a given span.
func extractiveSummary(span []*memory.Message, maxChars int) string {
	body := distillFacts(span)
	if body == "" {
		body = headTail(joinSpan(span), headTailChars)
	}
	return truncate("Summary of earlier conversation:\n"+body, maxChars)
}

// distillFacts keeps questions, keyword lines, and code blocks from the
// span, deduplicating near-identical lines.
func distillFacts(span []*memory.Message) string {
	var facts []string

	for _, m := range span {
		content := m.Content
		if len(content) < minDistillLength && !strings.Contains(content, "```") {
			continue
		}

		inCode := false
		var codeLines []string
		for _, line := range strings.Split(content, "\n") {
			stripped := strings.TrimSpace(line)

			if strings.HasPrefix(stripped, "```") {
				if inCode {
					codeLines = append(codeLines, line)
					facts = append(facts, strings.Join(codeLines, "\n"))
					codeLines = nil
					inCode = false
				} else {
					inCode = true
					codeLines = []string{line}
				}
				continue
			}
			if inCode {
				codeLines = append(codeLines, line)
				continue
			}

			if strings.HasSuffix(stripped, "?") {
				facts = append(facts, fmt.Sprintf("[%s]: %s", m.Role, stripped))
				continue
			}
			lower := strings.ToLower(stripped)
			for _, kw := range fallbackKeywords {
				if strings.Contains(lower, kw) {
					facts = append(facts, fmt.Sprintf("[%s]: %s", m.Role, stripped))
					break
				}
			}
		}

		// Unclosed code block: close and keep the partial code.
		if inCode && len(codeLines) > 0 {
			codeLines = append(codeLines, "```")
			facts = append(facts, strings.Join(codeLines, "\n"))
		}
	}

	seen := make(map[string]struct{}, len(facts))
	var unique []string
	for _, fact := range facts {
		normalized := strings.ToLower(strings.Join(strings.Fields(fact), " "))
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		unique = append(unique, fact)
	}
	return strings.Join(unique, "\n")
}

// joinSpan renders the span as a flat transcript.
func joinSpan(span []*memory.Message) string {
	var parts []string
	for _, m := range span {
		parts = append(parts, fmt.Sprintf("[%s]: %s", m.Role, m.Content))
	}
	return strings.Join(parts, "\n")
}

// headTail keeps the first and last n runes of text, eliding the middle.
func headTail(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= 2*n {
		return text
	}
	return string(runes[:n]) + "\n[...]\n" + string(runes[len(runes)-n:])
}

// truncate bounds text to maxChars runes, marking the cut.
func truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + "\n[...truncated]"
}
