package memory

import (
	"time"

	"github.com/entrhq/ember/pkg/types"
)

// Kind discriminates the entity variants stored in a session.
type Kind string

const (
	KindMessage Kind = "message"
	KindSummary Kind = "summary"
)

// Entity is one element of a session's ordered sequence: either a Message
// or a Summary. The variant is discriminated at the type level, never by
// sniffing fields.
type Entity interface {
	// EntityKind returns the variant tag.
	EntityKind() Kind

	// Text returns the content that would be sent to the model.
	Text() string

	// TokenCost returns the cached token estimate of Text.
	TokenCost() int
}

// Message is one conversational turn. Immutable once appended except for
// the Compressed flag, which flips when the message is folded into a
// Summary.
type Message struct {
	ID         uint64
	Role       types.MessageRole
	Content    string
	Timestamp  time.Time
	Tokens     int
	Importance float64
	Compressed bool
}

func (m *Message) EntityKind() Kind { return KindMessage }
func (m *Message) Text() string     { return m.Content }
func (m *Message) TokenCost() int   { return m.Tokens }

// Summary is a compressed stand-in for a contiguous span of messages.
// The span is an inclusive id range; the underlying messages remain in the
// session's full log (and in the term index) but leave the active window.
// A Summary itself is never compressed again.
type Summary struct {
	Content string
	FromID  uint64
	ToID    uint64
	Tokens  int
}

func (s *Summary) EntityKind() Kind { return KindSummary }
func (s *Summary) Text() string     { return s.Content }
func (s *Summary) TokenCost() int   { return s.Tokens }
