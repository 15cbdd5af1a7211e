// Package llmclient defines the single capability the roundtable core
// consumes from a model provider. Concrete providers, routing, and the
// wire protocol to any given vendor are hosting-layer concerns and live
// outside this module (spec.md §1 places them out of scope).
package llmclient

import (
	"context"
	"time"
)

// Role identifies the speaker of a Message in a chat-style completion.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single call into the model provider. Temperature and
// MaxTokens are advisory — a provider is free to clamp them.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []Message     `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Timeout     time.Duration `json:"-"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Usage tallies token accounting for a single ChatResponse.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the result of a successful ChatRequest.
type ChatResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
	Model   string `json:"model"`
}

// LLMClient is the only capability the roundtable core requires from a
// model provider: a single blocking chat completion call. Implementations
// are expected to be safe for concurrent use — the session runtime calls
// Complete from every reviewer goroutine in a fan-out without additional
// synchronization.
type LLMClient interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
