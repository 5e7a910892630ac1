package domain

import "context"

// Chat message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatMessage is a single message of a chat-completion conversation.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatResult carries the completion text and token usage.
type ChatResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// ChatCompleter generates a completion for a conversation.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []ChatMessage) (ChatResult, error)
}
