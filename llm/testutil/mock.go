// Package testutil provides a scriptable llm.Completer for tests.
package testutil

import (
	"context"
	"sync"

	"github.com/c360studio/specgen/llm"
)

// MockCompleter is a thread-safe llm.Completer.
//
// Resolution order per call: Err, then Handler, then the next entry of
// Responses, then an empty reply.
//
//	mock := &MockCompleter{
//	    Handler: func(req llm.Request) (*llm.Response, error) {
//	        if strings.Contains(req.Messages[0].Content, "Gherkin") {
//	            return &llm.Response{Content: "Feature: Login"}, nil
//	        }
//	        return &llm.Response{Content: "Table users {}"}, nil
//	    },
//	}
type MockCompleter struct {
	mu            sync.Mutex
	Responses     []*llm.Response
	Err           error
	Handler       func(req llm.Request) (*llm.Response, error)
	requests      []llm.Request
	contexts      []context.Context
	responseIndex int
}

// Complete implements llm.Completer.
func (m *MockCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.contexts = append(m.contexts, ctx)
	handler := m.Handler
	err := m.Err
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if handler != nil {
		return handler(req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp, nil
	}
	return &llm.Response{Content: "", Model: "test-model"}, nil
}

// Requests returns a copy of every request received so far.
func (m *MockCompleter) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastContext returns the context of the most recent call.
func (m *MockCompleter) LastContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.contexts) == 0 {
		return nil
	}
	return m.contexts[len(m.contexts)-1]
}

// CallCount returns the number of calls to Complete.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Reset clears recorded calls and rewinds Responses.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.contexts = nil
	m.responseIndex = 0
}

// Prompt returns the system and user content of a recorded request.
func Prompt(req llm.Request) (system, user string) {
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			system = msg.Content
		case "user":
			user = msg.Content
		}
	}
	return system, user
}
