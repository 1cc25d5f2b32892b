package provider

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrClosed is returned by sessions used after Close
var ErrClosed = errors.New("session closed")

// ToolSpec is a tool as advertised by a provider
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// Result is the logical outcome of a tool call. A call that reached the tool
// always yields a Result; OK=false carries the tool's own error message.
type Result struct {
	OK           bool   `json:"ok"`
	Payload      string `json:"payload,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
}

// Success builds an OK result
func Success(payload string) Result {
	return Result{OK: true, Payload: payload}
}

// ToolError builds a tool-reported error result
func ToolError(msg string) Result {
	return Result{OK: false, ErrorMessage: msg}
}

// Session is an open connection to one provider.
// A non-nil error from CallTool means the transport failed, not the tool.
type Session interface {
	ListTools(ctx context.Context) ([]ToolSpec, error)
	CallTool(ctx context.Context, name string, args map[string]any) (Result, error)
	// Multiplexed reports whether concurrent calls are safe
	Multiplexed() bool
	Close() error
}

// Connector opens sessions to a provider
type Connector interface {
	ID() string
	Connect(ctx context.Context) (Session, error)
}
