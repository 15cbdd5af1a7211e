// Package mocks provides a scriptable llmclient.LLMClient for tests,
// grounded on _examples/BaSui01-agentflow/testutil/mocks/provider.go's MockProvider (builder
// configuration, call recording, WithFailAfter, WithCompletionFunc),
// narrowed to this module's single-method LLMClient interface in place of
// the teacher's streaming/tool-calling provider surface.
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/va2ai/ai-agent-orchestration-platform/llmclient"
)

// Call records one Complete invocation.
type Call struct {
	Request  llmclient.ChatRequest
	Response llmclient.ChatResponse
	Error    error
}

// LLMClient is a scriptable llmclient.LLMClient for tests.
type LLMClient struct {
	mu sync.Mutex

	response         string
	promptTokens     int
	completionTokens int
	err              error
	failAfter        int
	callCount        int
	calls            []Call
	completionFunc   func(ctx context.Context, req llmclient.ChatRequest) (llmclient.ChatResponse, error)
}

// New constructs an LLMClient defaulting to a fixed, successful response.
func New() *LLMClient {
	return &LLMClient{
		response:         "Mock response",
		promptTokens:     10,
		completionTokens: 20,
	}
}

// WithResponse sets the fixed content every Complete call returns, absent a
// custom completion function.
func (m *LLMClient) WithResponse(response string) *LLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError makes every Complete call fail with err.
func (m *LLMClient) WithError(err error) *LLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithTokenUsage sets the token counts reported on each response.
func (m *LLMClient) WithTokenUsage(prompt, completion int) *LLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptTokens = prompt
	m.completionTokens = completion
	return m
}

// WithFailAfter makes calls after the Nth fail, used to exercise the retry
// policy and the reviewer's salvage-reformat path.
func (m *LLMClient) WithFailAfter(n int) *LLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// WithCompletionFunc overrides Complete's behavior entirely.
func (m *LLMClient) WithCompletionFunc(fn func(ctx context.Context, req llmclient.ChatRequest) (llmclient.ChatResponse, error)) *LLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionFunc = fn
	return m
}

// Complete implements llmclient.LLMClient.
func (m *LLMClient) Complete(ctx context.Context, req llmclient.ChatRequest) (llmclient.ChatResponse, error) {
	m.mu.Lock()
	m.callCount++
	callCount := m.callCount

	if m.failAfter > 0 && callCount > m.failAfter {
		err := errors.New("mock llm client: configured to fail after N calls")
		m.calls = append(m.calls, Call{Request: req, Error: err})
		m.mu.Unlock()
		return llmclient.ChatResponse{}, err
	}
	if m.err != nil {
		err := m.err
		m.calls = append(m.calls, Call{Request: req, Error: err})
		m.mu.Unlock()
		return llmclient.ChatResponse{}, err
	}
	if m.completionFunc != nil {
		fn := m.completionFunc
		m.mu.Unlock()
		resp, err := fn(ctx, req)
		m.mu.Lock()
		m.calls = append(m.calls, Call{Request: req, Response: resp, Error: err})
		m.mu.Unlock()
		return resp, err
	}

	resp := llmclient.ChatResponse{
		Content: m.response,
		Model:   req.Model,
		Usage: llmclient.Usage{
			PromptTokens:     m.promptTokens,
			CompletionTokens: m.completionTokens,
			TotalTokens:      m.promptTokens + m.completionTokens,
		},
	}
	m.calls = append(m.calls, Call{Request: req, Response: resp})
	m.mu.Unlock()
	return resp, nil
}

// Calls returns every recorded call, in order.
func (m *LLMClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call{}, m.calls...)
}

// CallCount returns the number of Complete invocations so far.
func (m *LLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears call history and any configured error.
func (m *LLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.callCount = 0
	m.err = nil
}

// NewSuccess builds an LLMClient that always returns response.
func NewSuccess(response string) *LLMClient {
	return New().WithResponse(response)
}

// NewError builds an LLMClient that always fails with err.
func NewError(err error) *LLMClient {
	return New().WithError(err)
}

// NewFlakey builds an LLMClient that succeeds with response until the Nth
// call, then fails on every subsequent call.
func NewFlakey(failAfter int, response string) *LLMClient {
	return New().WithResponse(response).WithFailAfter(failAfter)
}
