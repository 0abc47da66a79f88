// Package recall surfaces relevant historical messages for the current
// turn. It queries the session's term index, drops anything already
// visible in the active window, and bounds the result with a
// recall-specific token sub-budget.
package recall

import (
	"github.com/entrhq/ember/pkg/agent/memory"
	"github.com/entrhq/ember/pkg/logging"
	"github.com/entrhq/ember/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("recall")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("failed to initialize recall logger, using stderr fallback: %v", err)
	}
}

// minScore filters out weak matches: below this, a shared stop-word-like
// term is usually all the query and document have in common.
const minScore = 0.1

// Chunk is one historical message surfaced for injection into the
// outbound request.
type Chunk struct {
	ID      uint64
	Role    types.MessageRole
	Content string
	Score   float64
	Tokens  int
}

// Engine recalls historical chunks for a query.
type Engine struct {
	topK        int
	tokenBudget int
}

// NewEngine creates an engine returning at most topK chunks whose total
// estimated cost fits tokenBudget.
func NewEngine(topK, tokenBudget int) *Engine {
	if topK < 1 {
		topK = 1
	}
	return &Engine{topK: topK, tokenBudget: tokenBudget}
}

// Recall queries the session's index for the user's input and returns up
// to k relevant chunks, score-descending. Pass k <= 0 to use the engine's
// configured top-k.
//
// Messages currently in the active window are excluded (the model already
// sees them), each message id appears at most once, and the list is cut
// off once the token sub-budget is spent.
func (e *Engine) Recall(sess *memory.Session, query string, k int) []Chunk {
	if k <= 0 {
		k = e.topK
	}

	active := sess.ActiveMessageIDs()

	// Over-fetch by the active window size: the best matches are often
	// the messages the model can already see.
	results := sess.Index().Query(query, k+len(active))

	var chunks []Chunk
	remaining := e.tokenBudget
	for _, r := range results {
		if r.Score < minScore {
			continue
		}
		if _, visible := active[r.DocID]; visible {
			continue
		}
		msg, ok := sess.MessageByID(r.DocID)
		if !ok {
			continue
		}
		if e.tokenBudget > 0 && msg.Tokens > remaining {
			break
		}
		remaining -= msg.Tokens

		chunks = append(chunks, Chunk{
			ID:      msg.ID,
			Role:    msg.Role,
			Content: msg.Content,
			Score:   r.Score,
			Tokens:  msg.Tokens,
		})
		if len(chunks) >= k {
			break
		}
	}

	if len(chunks) > 0 {
		debugLog.Debugf("recalled %d chunks for query (%d candidates)", len(chunks), len(results))
	}
	return chunks
}
