// Package tokenizer estimates the model-context cost of text.
//
// When the tiktoken encoding is available, counts are exact for
// cl100k_base-family models. When it is not (offline builds, unsupported
// platforms), estimation degrades to a deterministic ~4 chars/token
// heuristic. Estimation never fails: callers budget against the result
// without an error path.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/ember/pkg/types"
)

const (
	// encodingName is the tokenizer encoding used for counting.
	encodingName = "cl100k_base"

	// charsPerToken is the heuristic fallback ratio for English-ish text.
	charsPerToken = 4

	// DefaultCost is charged for empty or otherwise unestimable payloads.
	DefaultCost = 1

	// messageOverhead approximates the per-message framing cost of the
	// chat completion format (role markers, separators).
	messageOverhead = 4
)

// Estimator is the minimal counting surface the memory subsystem depends
// on. Both the tiktoken-backed Tokenizer and test doubles satisfy it.
type Estimator interface {
	Estimate(text string) int
}

// Tokenizer counts tokens with tiktoken, falling back to the heuristic
// when the encoding could not be loaded.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New creates a Tokenizer. If the tiktoken encoding cannot be initialized
// the returned Tokenizer is still fully usable (heuristic mode) and the
// error reports why exact counting is unavailable.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return &Tokenizer{}, fmt.Errorf("tokenizer: load %s encoding: %w", encodingName, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// NewHeuristic creates a Tokenizer that always uses the chars/token
// heuristic. Useful in tests, where counts must be derivable by hand.
func NewHeuristic() *Tokenizer {
	return &Tokenizer{}
}

// Estimate returns the token cost of text. Never fails; empty input costs
// DefaultCost.
func (t *Tokenizer) Estimate(text string) int {
	if text == "" {
		return DefaultCost
	}
	if t.enc != nil {
		return len(t.enc.Encode(text, nil, nil))
	}
	return heuristic(text)
}

// EstimateMessages returns the total cost of a chat payload, including the
// per-message framing overhead.
func (t *Tokenizer) EstimateMessages(messages []*types.Message) int {
	total := 0
	for _, m := range messages {
		total += t.Estimate(m.Content) + messageOverhead
	}
	return total
}

// Exact reports whether counts come from the real encoding rather than
// the heuristic.
func (t *Tokenizer) Exact() bool { return t.enc != nil }

// heuristic is the ~4 chars/token approximation, rounded up with a floor
// of one token.
func heuristic(text string) int {
	n := (len(text) + charsPerToken - 1) / charsPerToken
	if n < 1 {
		n = 1
	}
	return n
}
