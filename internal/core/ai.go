package core

import "context"

// LLMProvider answers a single user prompt under a system prompt.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
