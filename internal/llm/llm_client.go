package llm

import "context"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Request is one chat turn: the system instructions plus the conversation so far.
type Request struct {
	Agent       string // metrics label
	System      string
	Messages    []Message
	Temperature float64
}

type LLMClient interface {
	Ping(ctx context.Context) error
	Chat(ctx context.Context, req Request) (string, error)
}
