// Package mocks provides test doubles for this service's narrow provider
// interfaces, in the builder-with-error-injection style used throughout the
// original codebase's own mock providers.
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
)

// MockMessagesAPI is a fake for llmclient.MessagesAPI: one method, New,
// returning a canned *anthropic.Message or an injected error.
type MockMessagesAPI struct {
	mu sync.Mutex

	text         string
	outputTokens int64
	err          error
	failAfter    int
	callCount    int
	calls        []anthropic.MessageNewParams
}

// NewMockMessagesAPI returns a MockMessagesAPI that by default answers every
// call with a short non-empty text block.
func NewMockMessagesAPI() *MockMessagesAPI {
	return &MockMessagesAPI{text: "mock analysis content", outputTokens: 42}
}

// WithText sets the text block returned by New.
func (m *MockMessagesAPI) WithText(text string) *MockMessagesAPI {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return m
}

// WithEmptyContent configures New to return a message with no text blocks,
// exercising llmclient's empty-content-is-failure path.
func (m *MockMessagesAPI) WithEmptyContent() *MockMessagesAPI {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = ""
	return m
}

// WithOutputTokens sets the usage.output_tokens reported back.
func (m *MockMessagesAPI) WithOutputTokens(n int64) *MockMessagesAPI {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputTokens = n
	return m
}

// WithError configures New to always fail with err.
func (m *MockMessagesAPI) WithError(err error) *MockMessagesAPI {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFailAfter configures New to start failing once it has been called n
// times, simulating an upstream outage mid-session.
func (m *MockMessagesAPI) WithFailAfter(n int) *MockMessagesAPI {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// New implements llmclient.MessagesAPI.
func (m *MockMessagesAPI) New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.calls = append(m.calls, params)

	if m.err != nil {
		return nil, m.err
	}
	if m.failAfter > 0 && m.callCount > m.failAfter {
		return nil, errors.New("mock messages api: configured to fail after N calls")
	}

	var content []anthropic.ContentBlockUnion
	if m.text != "" {
		content = []anthropic.ContentBlockUnion{{Type: "text", Text: m.text}}
	}
	return &anthropic.Message{
		Content: content,
		Usage:   anthropic.Usage{OutputTokens: m.outputTokens},
	}, nil
}

// CallCount reports how many times New has been invoked.
func (m *MockMessagesAPI) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastCall returns the params of the most recent New call, or the zero
// value if New has never been called.
func (m *MockMessagesAPI) LastCall() anthropic.MessageNewParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return anthropic.MessageNewParams{}
	}
	return m.calls[len(m.calls)-1]
}
