package provider

import (
	"context"
	"sync"
)

// Handler implements an in-process tool. A returned error is a tool error.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// LocalTool pairs a spec with its handler
type LocalTool struct {
	Spec    ToolSpec
	Handler Handler
}

// Local is an in-process provider. Its sessions are not multiplexed, so the
// dispatcher serializes calls to it.
type Local struct {
	id    string
	tools []LocalTool
}

// NewLocal builds an in-process provider
func NewLocal(id string, tools ...LocalTool) *Local {
	return &Local{id: id, tools: tools}
}

// ID returns the provider id
func (l *Local) ID() string { return l.id }

// Connect returns a new session over the tool set
func (l *Local) Connect(ctx context.Context) (Session, error) {
	handlers := make(map[string]Handler, len(l.tools))
	for _, t := range l.tools {
		handlers[t.Spec.Name] = t.Handler
	}
	return &localSession{tools: l.tools, handlers: handlers}, nil
}

type localSession struct {
	mu       sync.Mutex
	closed   bool
	tools    []LocalTool
	handlers map[string]Handler
}

func (s *localSession) Multiplexed() bool { return false }

func (s *localSession) ListTools(ctx context.Context) ([]ToolSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	specs := make([]ToolSpec, len(s.tools))
	for i, t := range s.tools {
		specs[i] = t.Spec
	}
	return specs, nil
}

func (s *localSession) CallTool(ctx context.Context, name string, args map[string]any) (Result, error) {
	s.mu.Lock()
	closed := s.closed
	h, ok := s.handlers[name]
	s.mu.Unlock()

	if closed {
		return Result{}, ErrClosed
	}
	if !ok {
		return ToolError("unknown tool: " + name), nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	out, err := h(ctx, args)
	if err != nil {
		return ToolError(err.Error()), nil
	}
	return Success(out), nil
}

func (s *localSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
