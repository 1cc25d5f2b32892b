package observability

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AuditEvent is one security-relevant record
type AuditEvent struct {
	Type      string                 `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	SessionID string                 `json:"session_id,omitempty"`
	Action    string                 `json:"action"` // e.g. "validate:plan", "dispatch:search"
	Status    string                 `json:"status"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
}

// AuditLogger writes audit events as JSON lines
type AuditLogger struct {
	logger zerolog.Logger
	mu     sync.Mutex
	closer io.Closer
}

var (
	auditMu   sync.RWMutex
	auditInst = NewAuditLogger(io.Discard)
)

// NewAuditLogger writes events to w
func NewAuditLogger(w io.Writer) *AuditLogger {
	return &AuditLogger{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// GetAuditLogger returns the process audit logger. It discards events until
// InitAuditLogger or SetAuditLogger is called.
func GetAuditLogger() *AuditLogger {
	auditMu.RLock()
	defer auditMu.RUnlock()
	return auditInst
}

// SetAuditLogger replaces the process audit logger
func SetAuditLogger(a *AuditLogger) {
	auditMu.Lock()
	auditInst = a
	auditMu.Unlock()
}

// InitAuditLogger appends audit events to the file at path
func InitAuditLogger(path string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	a := NewAuditLogger(file)
	a.closer = file
	SetAuditLogger(a)
	return nil
}

// Record writes event and, when ctx carries a span, adds it as a span event
func (a *AuditLogger) Record(ctx context.Context, event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		event.TraceID = span.SpanContext().TraceID().String()
		span.AddEvent(event.Action, trace.WithAttributes(
			attribute.String("audit.type", event.Type),
			attribute.String("audit.status", event.Status),
		))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entry := a.logger.Log().
		Str("event_type", event.Type).
		Str("session_id", event.SessionID).
		Str("action", event.Action).
		Str("status", event.Status)
	if event.TraceID != "" {
		entry = entry.Str("trace_id", event.TraceID)
	}
	if event.Metadata != nil {
		entry = entry.Interface("metadata", event.Metadata)
	}
	entry.Msg("")
}

// Close closes the underlying file, if any
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// RecordValidationAudit records a failed gate validation
func RecordValidationAudit(ctx context.Context, sessionID, pipeline, ruleID, reason string, blocked bool) {
	status := "rejected"
	if blocked {
		status = "blocked"
	}
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:      "security",
		SessionID: sessionID,
		Action:    "validate:" + pipeline,
		Status:    status,
		Metadata:  map[string]interface{}{"rule_id": ruleID, "reason": reason},
	})
}

// RecordDispatchAudit records one tool dispatch
func RecordDispatchAudit(ctx context.Context, sessionID, tool, status string) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:      "tool",
		SessionID: sessionID,
		Action:    "dispatch:" + tool,
		Status:    status,
	})
}

// RecordSessionAudit records the terminal verdict of a session run
func RecordSessionAudit(ctx context.Context, sessionID, verdict string, metadata map[string]interface{}) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:      "session",
		SessionID: sessionID,
		Action:    "terminate",
		Status:    verdict,
		Metadata:  metadata,
	})
}
