package providers

import (
	"context"
	"fmt"
)

// Echo is the fallback backend used when no LLM is configured: it mirrors
// the user's text back. The substitution is decided once at startup, never
// per call.
type Echo struct{}

// NewEcho creates the echo backend.
func NewEcho() *Echo { return &Echo{} }

func (e *Echo) Name() string { return "echo" }

func (e *Echo) Chat(_ context.Context, _ string, _ []Message, userText string) (string, error) {
	return fmt.Sprintf("echo: %s", userText), nil
}
