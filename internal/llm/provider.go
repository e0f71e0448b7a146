// Package llm provides a narrow, provider-agnostic chat completion
// gateway used by the chat router, trying backends in a fixed preference
// order and degrading gracefully when none are reachable.
package llm

import "context"

// Message is one turn of conversation history passed to a provider.
type Message struct {
	Role    string
	Content string
}

// CompleteOptions tunes a single completion call.
type CompleteOptions struct {
	Temperature float64
	MaxTokens   int
}

// Provider is a single chat-completion backend.
type Provider interface {
	// Complete returns the model's reply text for system + history + user.
	Complete(ctx context.Context, system string, history []Message, user string, opts CompleteOptions) (string, error)
	// Available reports whether this provider can currently serve requests
	// (credentials present, host reachable).
	Available(ctx context.Context) bool
	// Name identifies the provider for diagnostics and set_active.
	Name() string
}
