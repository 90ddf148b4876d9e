package authtest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ggoodman/mcp-authagent-go/auth"
	"github.com/ggoodman/mcp-authagent-go/authagent"
)

var _ auth.Introspector = (*StaticIntrospector)(nil)

// StaticIntrospector is a test introspector backed by an in-memory token
// table. Unknown tokens introspect as inactive. If Err is set every call
// fails with it, simulating an unreachable authorization service.
type StaticIntrospector struct {
	Err error

	mu     sync.RWMutex
	tokens map[string]authagent.TokenStatus
	calls  atomic.Int64
}

// NewStaticIntrospector creates an introspector with no known tokens.
func NewStaticIntrospector() *StaticIntrospector {
	return &StaticIntrospector{tokens: map[string]authagent.TokenStatus{}}
}

// Set registers the status returned for tok.
func (s *StaticIntrospector) Set(tok string, st authagent.TokenStatus) *StaticIntrospector {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok] = st
	return s
}

// Calls returns the number of Introspect invocations.
func (s *StaticIntrospector) Calls() int { return int(s.calls.Load()) }

// Introspect returns the registered status for token.
func (s *StaticIntrospector) Introspect(ctx context.Context, token string) (*authagent.TokenStatus, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	st, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return &authagent.TokenStatus{Active: false}, nil
	}
	return &st, nil
}
