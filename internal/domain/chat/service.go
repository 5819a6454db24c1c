// Package chat turns a client conversation into one metered chat completion.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/ronchon/server/internal/domain/entitlement"
	"github.com/ronchon/server/internal/port/outbound"
	"github.com/ronchon/server/internal/utils/logger"
	"go.uber.org/zap"
)

const (
	// MaxHistory bounds how many client messages reach the model.
	MaxHistory = 20

	// FallbackReply is returned when the model answers with nothing.
	FallbackReply = "Désolé, pas de réponse générée."
)

// Admitter is the quota gate consulted before each completion.
type Admitter interface {
	CheckAndConsume(ctx context.Context, key string) entitlement.Admission
}

// Message is one turn of the client conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a chat call from a client.
type Request struct {
	Messages    []Message
	Personality string
}

// Result carries the reply and the admission that allowed it. On
// ErrQuotaExceeded only Admission is set.
type Result struct {
	Reply     string
	Admission entitlement.Admission
}

// Service validates, meters and forwards chat requests.
type Service struct {
	admitter Admitter
	llm      outbound.ChatCompletionPort
	logger   *zap.Logger
}

// NewService creates a chat service.
func NewService(admitter Admitter, llm outbound.ChatCompletionPort, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{admitter: admitter, llm: llm, logger: log.Named("chat")}
}

// Send runs one chat turn for key. Invalid input is rejected before any quota
// is consumed; an upstream failure after admission keeps the charge.
func (s *Service) Send(ctx context.Context, key string, req *Request) (*Result, error) {
	history := Sanitize(req.Messages)
	if len(history) == 0 {
		return nil, ErrInvalidMessages
	}

	adm := s.admitter.CheckAndConsume(ctx, key)
	if !adm.Admitted {
		return &Result{Admission: adm}, ErrQuotaExceeded
	}

	personality := ParsePersonality(req.Personality)
	prompt := make([]outbound.ChatMessage, 0, len(history)+1)
	prompt = append(prompt, outbound.ChatMessage{Role: "system", Content: personality.SystemPrompt()})
	for _, m := range history {
		prompt = append(prompt, outbound.ChatMessage{Role: m.Role, Content: m.Content})
	}

	reply, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		logger.WithContext(ctx, s.logger).Error("chat completion failed",
			zap.String("personality", string(personality)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if strings.TrimSpace(reply) == "" {
		reply = FallbackReply
	}

	return &Result{Reply: reply, Admission: adm}, nil
}

// Sanitize keeps user and assistant turns with content and returns at most
// the last MaxHistory of them.
func Sanitize(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	if len(out) > MaxHistory {
		out = out[len(out)-MaxHistory:]
	}
	return out
}
