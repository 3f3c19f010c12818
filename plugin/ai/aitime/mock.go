package aitime

import (
	"context"
	"sync"
)

// MockResolver is a mock implementation of Resolver for testing.
type MockResolver struct {
	mu      sync.Mutex
	answers map[string]*Candidate
	err     error
	panic   any
	calls   []string

	// Gate, when set, blocks Resolve until it is closed or ctx ends.
	Gate chan struct{}
}

// NewMockResolver creates a new MockResolver that finds no time for any phrase.
func NewMockResolver() *MockResolver {
	return &MockResolver{answers: make(map[string]*Candidate)}
}

// SetAnswer makes Resolve return c for phrase. c may be out of range.
func (m *MockResolver) SetAnswer(phrase string, c Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[phrase] = &c
}

// SetError makes every Resolve call fail with err.
func (m *MockResolver) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetPanic makes every Resolve call panic with v.
func (m *MockResolver) SetPanic(v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panic = v
}

// Calls returns the phrases Resolve was called with.
func (m *MockResolver) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Resolve implements Resolver.
func (m *MockResolver) Resolve(ctx context.Context, phrase string) (*Candidate, error) {
	m.mu.Lock()
	m.calls = append(m.calls, phrase)
	gate := m.Gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.panic != nil {
		panic(m.panic)
	}
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.answers[phrase]; ok {
		cand := *c
		return &cand, nil
	}
	return nil, nil
}

var _ Resolver = (*MockResolver)(nil)
