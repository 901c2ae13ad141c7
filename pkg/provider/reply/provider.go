// Package reply defines the interface for dialogue reply engines.
//
// A reply Engine wraps a remote or local language model (e.g., OpenAI GPT-4o,
// Anthropic Claude via any-llm, or a local Ollama instance) and turns the
// user's latest utterance plus conversation history into the server's spoken
// response text.
//
// Implementors must be safe for concurrent use; each session carries its own
// history, so engines hold no conversational state.
package reply

import "context"

// Message is one turn of conversation history.
type Message struct {
	// Role is "user" or "assistant".
	Role string

	// Content is the plain text of the turn.
	Content string
}

// Request carries everything the engine needs to produce a reply.
type Request struct {
	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation history.
	SystemPrompt string

	// History is the ordered prior conversation, oldest first. It does not
	// include UserText.
	History []Message

	// UserText is the utterance that drives this reply. Must be non-empty.
	UserText string

	// Temperature controls output randomness. Zero means the engine default.
	Temperature float64

	// MaxTokens caps the reply length in model tokens. Zero means the engine
	// default.
	MaxTokens int
}

// Engine produces one reply per call.
type Engine interface {
	// Reply returns the response text for req. Implementations must honour
	// ctx cancellation and never return blank text with a nil error unless
	// the model itself produced nothing.
	Reply(ctx context.Context, req Request) (string, error)
}
