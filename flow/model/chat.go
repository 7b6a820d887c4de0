// Package model provides LLM integration adapters.
package model

import "context"

// ChatModel defines the interface for LLM chat providers.
//
// Implementations should:
//   - Handle provider-specific authentication.
//   - Convert the standard Message format to the provider's format.
//   - Parse provider responses back to the standard ChatOut format.
//   - Respect context cancellation and timeouts.
//   - Handle retries and rate limiting appropriately.
//
// Failures are returned as errors; callers at the workflow layer are
// responsible for degrading them so a run never aborts on a provider fault.
type ChatModel interface {
	// Chat sends the request to the LLM and returns the response.
	Chat(ctx context.Context, req Request) (ChatOut, error)
}

// Message represents a single message in an LLM conversation.
type Message struct {
	// Role identifies the message sender. Use the Role* constants.
	Role string

	// Content contains the message text.
	Content string
}

// Standard role constants for LLM conversations. These align with the
// conventions used by major LLM providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request carries one chat completion call: the conversation plus the
// per-call generation settings. Model, MaxTokens, and Temperature come from
// the invoking role's configuration, so different roles may use different
// models through the same provider.
type Request struct {
	// Model is the provider-specific model id. Empty uses the provider's
	// default.
	Model string

	// Messages is the conversation (system, user, assistant order).
	Messages []Message

	// MaxTokens bounds the generated output. Zero uses the provider's
	// default.
	MaxTokens int

	// Temperature controls sampling. Providers clamp to their own range.
	Temperature float64
}

// ChatOut represents the output from an LLM chat completion.
type ChatOut struct {
	// Text contains the generated response.
	Text string

	// TokensIn and TokensOut report usage when the provider supplies it.
	TokensIn  int
	TokensOut int
}
