// Package providers implements the reply generation backends.
package providers

import "context"

// Message is one conversation message in OpenAI wire vocabulary.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Provider generates a reply for one conversation turn. Implementations must
// respect ctx cancellation and enforce their own wall-clock bound on any
// network call.
type Provider interface {
	// Chat builds [system] + history + [new user message], preserving order,
	// and returns the generated text. An empty result is an error, never a
	// valid reply.
	Chat(ctx context.Context, system string, history []Message, userText string) (string, error)

	// Name returns the provider identifier for logs.
	Name() string
}
