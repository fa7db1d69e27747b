package domain

import "context"

// Role of a completion message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational turn made of one or more parts.
type Message struct {
	Role  Role
	Parts []Part
}

// UserText is a shorthand for a single-part user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
}

// SystemText is a shorthand for a single-part system message.
func SystemText(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{TextPart{Text: text}}}
}

// CompletionRequest is the provider-neutral prompt.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Completion is the generated text plus token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Completer produces a whole completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// StreamCompleter streams completion tokens as they arrive.
// onToken is called in order; returning an error stops the stream.
type StreamCompleter interface {
	Stream(ctx context.Context, req CompletionRequest, onToken func(token string) error) (Completion, error)
}
