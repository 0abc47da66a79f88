package context

import (
	"fmt"
	"strings"

	"github.com/entrhq/ember/pkg/agent/memory"
	"github.com/entrhq/ember/pkg/agent/recall"
	"github.com/entrhq/ember/pkg/types"
)

// BuildPayload assembles the context payload for the outbound model
// request: the session's summaries as a system preamble, recalled chunks
// as a second system block, then the uncompressed messages in order.
// The chat loop appends the current user input itself and owns the
// actual model call.
func BuildPayload(sess *memory.Session, chunks []recall.Chunk) []*types.Message {
	var payload []*types.Message

	var summaries []string
	var messages []*types.Message
	for _, e := range sess.ActiveEntities() {
		switch v := e.(type) {
		case *memory.Summary:
			summaries = append(summaries, v.Content)
		case *memory.Message:
			msg := &types.Message{
				Role:      v.Role,
				Content:   v.Content,
				Timestamp: v.Timestamp,
			}
			messages = append(messages, msg)
		}
	}

	// Synthetic blocks are tagged so downstream consumers can tell them
	// apart from conversation turns.
	if len(summaries) > 0 {
		payload = append(payload, types.NewSystemMessage(
			"Earlier conversation summary:\n"+strings.Join(summaries, "\n---\n")).
			WithMetadata("memory", "summary"))
	}

	if len(chunks) > 0 {
		var b strings.Builder
		b.WriteString("Relevant earlier context:\n")
		for _, c := range chunks {
			b.WriteString(fmt.Sprintf("[%s]: %s\n", c.Role, c.Content))
		}
		payload = append(payload, types.NewSystemMessage(strings.TrimRight(b.String(), "\n")).
			WithMetadata("memory", "recall"))
	}

	return append(payload, messages...)
}
