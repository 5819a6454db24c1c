package outbound

import "context"

// ChatMessage is one turn of a chat transcript.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionPort produces an assistant reply for a transcript.
type ChatCompletionPort interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}
