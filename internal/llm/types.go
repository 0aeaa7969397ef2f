// Package llm abstracts the chat completion backends that generate the
// agent's spoken replies. Providers compose: the factory builds the
// configured backend, and wrappers add rate limiting and per-turn deadlines.
package llm

import "context"

// Role tags a message with its speaker, mirroring the stored turn roles.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the conversation sent to the model.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest asks a provider for the next reply. JSONMode forces a
// JSON object response; it is used for appointment detail extraction, never
// for spoken replies.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse carries the model's reply and token accounting.
type CompletionResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider is a chat completion backend.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}
