// Package llm provides the chat client used for query optimization.
// Only a small slice of a chat API is needed here: send a prompt with
// a system instruction, get free text back. Callers must tolerate
// provider failure — the optimizer degrades to a no-op when the model
// is unreachable.
package llm

import "context"

// Message is a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatResponse is the unified response from a chat provider.
type ChatResponse struct {
	Model   string
	Message Message
	Done    bool
}

// Client is the interface chat providers implement.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
