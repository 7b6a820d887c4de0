package model

import (
	"context"
	"sync"
)

// MockChatModel is a test implementation of ChatModel.
//
// Use MockChatModel in tests to verify workflow behavior without making
// actual LLM API calls. It provides configurable responses, call history
// tracking, error injection, and thread-safe operation.
//
// Example:
//
//	mock := &MockChatModel{
//	    Responses: []ChatOut{{Text: "First"}, {Text: "Second"}},
//	}
//	out, _ := mock.Chat(ctx, req) // "First", then "Second", then repeats
type MockChatModel struct {
	// Responses contains the sequence of responses to return. Each call
	// returns the next response; once exhausted, the last one repeats.
	Responses []ChatOut

	// Err, if set, is returned by Chat instead of a response.
	Err error

	// ErrOnCall, when > 0, makes only the Nth call (1-indexed) fail with
	// Err while other calls succeed. Useful for simulating a single failing
	// stage in a multi-stage run.
	ErrOnCall int

	// Calls tracks the history of all Chat invocations.
	Calls []Request

	mu        sync.Mutex
	callIndex int
}

// Chat implements the ChatModel interface.
func (m *MockChatModel) Chat(ctx context.Context, req Request) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	callNum := len(m.Calls)

	if m.Err != nil && (m.ErrOnCall == 0 || m.ErrOnCall == callNum) {
		return ChatOut{}, m.Err
	}

	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}

	return m.Responses[idx], nil
}

// Reset clears the call history and resets the response index.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns the number of times Chat has been called.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Calls)
}
