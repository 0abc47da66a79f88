// Package memory implements the conversation memory subsystem: a session
// store of messages and summaries, importance scoring, an incremental
// TF-IDF index over everything ever said, and JSONL persistence.
//
// A Session is a single-writer object: the per-turn cycle (append, budget
// check, recall, persist) runs as one non-overlapping sequence. Hosts that
// run sessions concurrently must guard each Session with its own lock;
// sessions never share state.
package memory

import (
	"time"

	"github.com/entrhq/ember/pkg/agent/memory/index"
	"github.com/entrhq/ember/pkg/llm/tokenizer"
	"github.com/entrhq/ember/pkg/logging"
	"github.com/entrhq/ember/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("memory")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("failed to initialize memory logger, using stderr fallback: %v", err)
	}
}

// Session owns the ordered entity sequence of one conversation plus the
// full message log and the term index derived from it.
//
// The active sequence is what the outbound request is built from:
// uncompressed messages interleaved with the summaries that replaced older
// spans. The full log keeps every message ever appended, compressed or
// not, for persistence and recall.
type Session struct {
	Name      string
	CreatedAt time.Time
	Model     string

	estimator tokenizer.Estimator
	scorer    *Scorer
	idx       *index.TermIndex

	nextID uint64
	all    []*Message
	active []Entity
}

// Option configures a Session at construction or load time.
type Option func(*Session)

// WithEstimator overrides the token estimator. The default is a tiktoken
// tokenizer, degrading to its heuristic mode when the encoding is
// unavailable.
func WithEstimator(est tokenizer.Estimator) Option {
	return func(s *Session) { s.estimator = est }
}

// WithScorer overrides the importance scorer.
func WithScorer(sc *Scorer) Option {
	return func(s *Session) { s.scorer = sc }
}

// NewSession creates an empty session.
func NewSession(name, model string, opts ...Option) *Session {
	s := &Session{
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Model:     model,
		scorer:    NewScorer(),
		idx:       index.New(),
		nextID:    1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.estimator == nil {
		tok, err := tokenizer.New()
		if err != nil {
			debugLog.Warnf("tiktoken unavailable, using heuristic estimates: %v", err)
		}
		s.estimator = tok
	}
	return s
}

// Append records a new conversational turn: assigns the next monotonic id,
// scores and estimates it, adds it to the full log and the active
// sequence, and indexes its content for future recall. Indexing happens
// here, once, and is never revoked by compression.
func (s *Session) Append(role types.MessageRole, content string) *Message {
	position := len(s.all)
	msg := &Message{
		ID:         s.nextID,
		Role:       role,
		Content:    content,
		Timestamp:  time.Now().UTC(),
		Tokens:     s.estimator.Estimate(content),
		Importance: s.scorer.Score(role, content, position, position+1),
	}
	s.nextID++

	s.all = append(s.all, msg)
	s.active = append(s.active, msg)
	s.idx.Add(msg.ID, content)
	return msg
}

// ActiveEntities returns a copy of the active sequence in order.
func (s *Session) ActiveEntities() []Entity {
	out := make([]Entity, len(s.active))
	copy(out, s.active)
	return out
}

// AllMessages returns a copy of the full message log in id order,
// including messages already folded into summaries.
func (s *Session) AllMessages() []*Message {
	out := make([]*Message, len(s.all))
	copy(out, s.all)
	return out
}

// MessageByID looks a message up in the full log.
func (s *Session) MessageByID(id uint64) (*Message, bool) {
	for _, m := range s.all {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// ActiveTokens returns the total estimated token cost of the active
// sequence. This is the value the budget manager checks against the
// configured ceiling.
func (s *Session) ActiveTokens() int {
	total := 0
	for _, e := range s.active {
		total += e.TokenCost()
	}
	return total
}

// ActiveMessageIDs returns the ids of uncompressed messages currently in
// the active window. The recall engine filters these out: they are
// already visible to the model.
func (s *Session) ActiveMessageIDs() map[uint64]struct{} {
	ids := make(map[uint64]struct{})
	for _, e := range s.active {
		if m, ok := e.(*Message); ok {
			ids[m.ID] = struct{}{}
		}
	}
	return ids
}

// Index exposes the session's term index for querying.
func (s *Session) Index() *index.TermIndex { return s.idx }

// Scorer exposes the session's importance scorer.
func (s *Session) Scorer() *Scorer { return s.scorer }

// Estimator exposes the session's token estimator.
func (s *Session) Estimator() tokenizer.Estimator { return s.estimator }

// Rescore recomputes every message's importance against the current log
// size, refreshing the recency component. Structural signals are
// unchanged, so a retention-exempt message stays exempt.
func (s *Session) Rescore() {
	total := len(s.all)
	for i, m := range s.all {
		m.Importance = s.scorer.Score(m.Role, m.Content, i, total)
	}
}

// OldestEligibleSpan returns the oldest contiguous run of compressible
// messages in the active sequence, or nil when nothing is eligible.
//
// Eligibility: outside the most-recent keepRecent entities, not a
// summary, not retention-exempt. Summaries, exempt messages, and id
// discontinuities (a damaged file can leave gaps in the loaded log)
// terminate a run, so returned spans always cover consecutive ids.
func (s *Session) OldestEligibleSpan(keepRecent int) []*Message {
	if keepRecent < 1 {
		keepRecent = 1
	}
	boundary := len(s.active) - keepRecent
	if boundary <= 0 {
		return nil
	}

	var span []*Message
	for _, e := range s.active[:boundary] {
		m, ok := e.(*Message)
		if !ok || s.scorer.Exempt(m.Importance) {
			if len(span) > 0 {
				return span
			}
			continue
		}
		if len(span) > 0 && m.ID != span[len(span)-1].ID+1 {
			return span
		}
		span = append(span, m)
	}
	return span
}

// Compress replaces a span of active messages with a single Summary at
// the span's position and marks the underlying messages compressed.
//
// The span must be contiguous in both id and active position, fully
// outside the keepRecent tail, and contain no exempt or already-compressed
// message; anything else is rejected as a no-op (ok=false), never an
// error. Summary text is truncated until it costs at most half of the
// span it replaces, so compression always strictly shrinks the window.
func (s *Session) Compress(span []*Message, summaryText string, keepRecent int) (*Summary, bool) {
	if len(span) == 0 {
		return nil, false
	}
	if keepRecent < 1 {
		keepRecent = 1
	}

	spanCost := 0
	for i, m := range span {
		if m == nil || m.Compressed || s.scorer.Exempt(m.Importance) {
			return nil, false
		}
		if i > 0 && m.ID != span[i-1].ID+1 {
			return nil, false
		}
		spanCost += m.Tokens
	}

	start := s.activePosition(span[0])
	if start < 0 {
		return nil, false
	}
	boundary := len(s.active) - keepRecent
	if start+len(span) > boundary {
		return nil, false
	}
	for i, m := range span {
		if s.active[start+i] != m {
			return nil, false
		}
	}

	text, cost := s.clampSummary(summaryText, spanCost)
	summary := &Summary{
		Content: text,
		FromID:  span[0].ID,
		ToID:    span[len(span)-1].ID,
		Tokens:  cost,
	}

	next := make([]Entity, 0, len(s.active)-len(span)+1)
	next = append(next, s.active[:start]...)
	next = append(next, summary)
	next = append(next, s.active[start+len(span):]...)
	s.active = next

	for _, m := range span {
		m.Compressed = true
	}

	debugLog.Debugf("compressed %d messages (ids %d-%d, %d -> %d tokens)",
		len(span), summary.FromID, summary.ToID, spanCost, cost)
	return summary, true
}

// activePosition returns the index of a message in the active sequence,
// by identity, or -1.
func (s *Session) activePosition(m *Message) int {
	for i, e := range s.active {
		if e == Entity(m) {
			return i
		}
	}
	return -1
}

// clampSummary truncates summary text until its estimated cost is at
// most half the cost of the span it replaces.
func (s *Session) clampSummary(text string, spanCost int) (string, int) {
	budget := spanCost / 2
	if budget < 1 {
		budget = 1
	}
	cost := s.estimator.Estimate(text)
	for cost > budget {
		runes := []rune(text)
		if len(runes) <= 1 {
			break
		}
		text = string(runes[:len(runes)*3/4])
		cost = s.estimator.Estimate(text)
	}
	return text, cost
}

// Stats is a snapshot of memory state for diagnostics.
type Stats struct {
	ActiveEntities int
	Summaries      int
	TotalMessages  int
	ActiveTokens   int
	IndexedDocs    int
}

// Stats returns a snapshot of the session's memory state.
func (s *Session) Stats() Stats {
	summaries := 0
	for _, e := range s.active {
		if e.EntityKind() == KindSummary {
			summaries++
		}
	}
	return Stats{
		ActiveEntities: len(s.active),
		Summaries:      summaries,
		TotalMessages:  len(s.all),
		ActiveTokens:   s.ActiveTokens(),
		IndexedDocs:    s.idx.DocumentCount(),
	}
}

// Clear resets all session state, keeping name, model, and configuration.
func (s *Session) Clear() {
	s.all = nil
	s.active = nil
	s.idx = index.New()
	s.nextID = 1
}
