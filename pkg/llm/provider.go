// Package llm defines the provider abstraction for language model calls.
//
// Inside the memory subsystem a Provider is the delegated summarization
// capability: a fallible external collaborator. Every call site must
// tolerate it failing and carry a local fallback; compression in
// particular never blocks on a provider error.
package llm

import (
	"context"

	"github.com/entrhq/ember/pkg/types"
)

// Provider is the interface to an LLM service.
type Provider interface {
	// Complete sends messages to the model and returns the full assistant
	// response. It must respect ctx cancellation and deadlines; callers
	// bound summarization calls with a timeout so a slow provider cannot
	// stall the per-turn cycle.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModel returns the model name calls are directed to.
	GetModel() string
}

// ModelCloner is an optional interface providers can implement to support
// cheap per-call model overrides (e.g. a smaller summarization model)
// without constructing a second provider. The clone shares credentials and
// transport with the original.
type ModelCloner interface {
	CloneWithModel(model string) Provider
}
