package session

import (
	"sync"
	"time"
)

// Verdict is the outcome of one step
type Verdict string

const (
	VerdictContinue Verdict = "continue"
	VerdictFinal    Verdict = "final"
	VerdictAborted  Verdict = "aborted"
)

// ToolOutcome is the validated result of one tool call
type ToolOutcome struct {
	CallID   string `json:"call_id"`
	ToolName string `json:"tool"`
	Args     string `json:"args,omitempty"`
	OK       bool   `json:"ok"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
	// Kind classifies failures, e.g. transport_failure
	Kind     string `json:"kind,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
}

// StepRecord is one entry of a session's audit trail
type StepRecord struct {
	Index       int           `json:"index"`
	Query       string        `json:"query"`
	Plan        string        `json:"plan,omitempty"`
	ToolResults []ToolOutcome `json:"tool_results,omitempty"`
	Verdict     Verdict       `json:"verdict"`
	Note        string        `json:"note,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Memory is the ordered, append-only step history of one session
type Memory struct {
	mu      sync.RWMutex
	records []StepRecord
}

// NewMemory seeds memory with previously persisted records
func NewMemory(records ...StepRecord) *Memory {
	return &Memory{records: append([]StepRecord(nil), records...)}
}

// Append adds a record, stamping it if needed
func (m *Memory) Append(r StepRecord) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	m.mu.Lock()
	m.records = append(m.records, r)
	m.mu.Unlock()
}

// Records returns a copy of all records in order
func (m *Memory) Records() []StepRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]StepRecord(nil), m.records...)
}

// Len returns the number of records
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Last returns the newest record
func (m *Memory) Last() (StepRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.records) == 0 {
		return StepRecord{}, false
	}
	return m.records[len(m.records)-1], true
}

// NextIndex returns the index the next step should use
func (m *Memory) NextIndex() int {
	last, ok := m.Last()
	if !ok {
		return 1
	}
	return last.Index + 1
}
