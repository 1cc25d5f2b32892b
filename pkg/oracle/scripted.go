package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrScriptExhausted is returned once every scripted plan was served
var ErrScriptExhausted = errors.New("scripted oracle has no more plans")

// Scripted replays a fixed sequence of plans. Entries may also be functions
// of the request, which lets tests react to memory.
type Scripted struct {
	mu       sync.Mutex
	steps    []func(Request) (string, error)
	requests []Request
}

// NewScripted replays plans in order
func NewScripted(plans ...string) *Scripted {
	s := &Scripted{}
	for _, p := range plans {
		s.Then(p)
	}
	return s
}

// LoadScript reads a JSON array of plans. Each element is either a string or
// a plan object.
func LoadScript(path string) (*Scripted, error) {
	if path == "" {
		return nil, fmt.Errorf("scripted oracle needs a script file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	s := &Scripted{}
	for _, r := range raw {
		var text string
		if err := json.Unmarshal(r, &text); err == nil {
			s.Then(text)
			continue
		}
		s.Then(string(r))
	}
	return s, nil
}

// Then appends a plan
func (s *Scripted) Then(plan string) *Scripted {
	return s.ThenFunc(func(Request) (string, error) { return plan, nil })
}

// ThenError appends a failing step
func (s *Scripted) ThenError(err error) *Scripted {
	return s.ThenFunc(func(Request) (string, error) { return "", err })
}

// ThenFunc appends a step computed from the request
func (s *Scripted) ThenFunc(f func(Request) (string, error)) *Scripted {
	s.mu.Lock()
	s.steps = append(s.steps, f)
	s.mu.Unlock()
	return s
}

// Name returns the oracle name
func (s *Scripted) Name() string {
	return "scripted"
}

// GeneratePlan serves the next scripted plan
func (s *Scripted) GeneratePlan(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	if len(s.steps) == 0 {
		s.mu.Unlock()
		return "", ErrScriptExhausted
	}
	next := s.steps[0]
	s.steps = s.steps[1:]
	s.mu.Unlock()

	return next(req)
}

// Requests returns every request served so far
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Remaining returns the number of unserved plans
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}
