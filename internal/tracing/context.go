package tracing

import (
	"context"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	TraceIDKey   ContextKey = "trace_id"
	SessionIDKey ContextKey = "session_id"
	RunIDKey     ContextKey = "run_id"
)

// TraceContext holds the ids carried through a session run
type TraceContext struct {
	TraceID   string
	SessionID string
	RunID     string
}

// NewID returns a random id
func NewID() string {
	return uuid.New().String()
}

// NewRunID returns a short id for one run of a session
func NewRunID() string {
	id, err := gonanoid.New()
	if err != nil {
		return NewID()
	}
	return id
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunIDKey, id)
}

func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(TraceIDKey).(string)
	return id
}

func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}

func GetRunID(ctx context.Context) string {
	id, _ := ctx.Value(RunIDKey).(string)
	return id
}

// FromContext extracts all tracing ids from ctx
func FromContext(ctx context.Context) TraceContext {
	return TraceContext{
		TraceID:   GetTraceID(ctx),
		SessionID: GetSessionID(ctx),
		RunID:     GetRunID(ctx),
	}
}

// NewRunContext tags ctx with the session id, a fresh run id and, if absent,
// a fresh trace id
func NewRunContext(ctx context.Context, sessionID string) context.Context {
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, NewID())
	}
	ctx = WithSessionID(ctx, sessionID)
	return WithRunID(ctx, NewRunID())
}
