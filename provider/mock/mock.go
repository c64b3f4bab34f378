// Package mock provides a scripted AI provider for testing.
package mock

import (
	"context"

	"github.com/remoproj/remo/provider"
)

const defaultResponse = "Acknowledged."

// MockProvider implements provider.Provider for testing.
// It returns scripted responses and can simulate tool calls.
type MockProvider struct {
	responses []*provider.Response
	idx       int
}

// New creates a MockProvider that cycles through the given responses.
func New(responses ...*provider.Response) *MockProvider {
	return &MockProvider{responses: responses}
}

// Text is shorthand for a plain-text scripted response.
func Text(content string) *provider.Response {
	return &provider.Response{Content: content}
}

// Call is shorthand for a scripted response containing a single tool call.
func Call(name string, args map[string]any) *provider.Response {
	return &provider.Response{
		ToolCalls: []provider.ToolCall{{ID: name, Name: name, Arguments: args}},
	}
}

// Name returns the provider identifier.
func (m *MockProvider) Name() string { return "mock" }

// Chat returns the next scripted response, cycling through the queue.
func (m *MockProvider) Chat(_ context.Context, _ []provider.Message, _ []provider.ToolDef) (*provider.Response, error) {
	if len(m.responses) == 0 {
		return &provider.Response{Content: defaultResponse}, nil
	}
	resp := m.responses[m.idx%len(m.responses)]
	m.idx++
	return resp, nil
}
