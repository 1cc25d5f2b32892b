package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harun/cortex/internal/tracing"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrInvalidSessionID = errors.New("invalid session id")

// entry is one JSONL line
type entry struct {
	SessionID string     `json:"session_id"`
	Record    StepRecord `json:"record"`
}

// Store persists step records as one JSONL file per session
type Store struct {
	dir        string
	writeLocks map[string]*sync.Mutex
	locksMu    sync.Mutex
}

// NewStore creates dir if needed. An empty dir selects ~/.cortex/sessions.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".cortex", "sessions")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	log.Info().Str("dir", dir).Msg("Session store initialized")
	return &Store{dir: dir, writeLocks: make(map[string]*sync.Mutex)}, nil
}

// Dir returns the storage directory
func (s *Store) Dir() string { return s.dir }

// ValidateSessionID rejects ids that are empty or not path-safe
func ValidateSessionID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidSessionID)
	case strings.Contains(id, ".."):
		return fmt.Errorf("%w: contains '..'", ErrInvalidSessionID)
	case strings.ContainsAny(id, "/\\"):
		return fmt.Errorf("%w: contains path separators", ErrInvalidSessionID)
	case strings.Contains(id, "\x00"):
		return fmt.Errorf("%w: contains null bytes", ErrInvalidSessionID)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".jsonl")
}

func (s *Store) writeLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.writeLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.writeLocks[id] = lock
	}
	return lock
}

// Append writes one record and syncs the file
func (s *Store) Append(ctx context.Context, id string, rec StepRecord) error {
	ctx, span := tracing.StartSpan(ctx, tracing.TracerAgent, "session.append",
		attribute.String("session_id", id),
		attribute.Int("step", rec.Index),
	)
	defer span.End()

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := ValidateSessionID(id); err != nil {
		return fail(err)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	data, err := json.Marshal(entry{SessionID: id, Record: rec})
	if err != nil {
		return fail(fmt.Errorf("failed to marshal step record: %w", err))
	}

	lock := s.writeLock(id)
	lock.Lock()
	defer lock.Unlock()

	file, err := os.OpenFile(s.path(id), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fail(fmt.Errorf("failed to open session file: %w", err))
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fail(fmt.Errorf("failed to write step record: %w", err))
	}
	if err := file.Sync(); err != nil {
		return fail(fmt.Errorf("failed to sync session file: %w", err))
	}

	logger := tracing.LoggerFromContext(ctx, log.Logger)
	logger.Debug().
		Int("step", rec.Index).
		Str("verdict", string(rec.Verdict)).
		Msg("Step record appended")
	return nil
}

// Load reads every record of a session in order. Corrupt lines are skipped.
// A session that was never written loads as empty.
func (s *Store) Load(ctx context.Context, id string) ([]StepRecord, error) {
	ctx, span := tracing.StartSpan(ctx, tracing.TracerAgent, "session.load",
		attribute.String("session_id", id),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	if err := ValidateSessionID(id); err != nil {
		span.RecordError(err)
		return nil, err
	}

	file, err := os.Open(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return []StepRecord{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	records := []StepRecord{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e entry
		if err := json.Unmarshal(line, &e); err != nil {
			logger.Warn().Int("line", lineNum).Err(err).Msg("Failed to parse step record, skipping")
			continue
		}
		if e.SessionID != id || e.Record.Verdict == "" {
			logger.Warn().Int("line", lineNum).Msg("Invalid step record, skipping")
			continue
		}
		records = append(records, e.Record)
	}
	if err := scanner.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	return records, nil
}

// List returns persisted session ids, sorted
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	ids := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".jsonl"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a session file
func (s *Store) Delete(id string) error {
	if err := ValidateSessionID(id); err != nil {
		return err
	}
	lock := s.writeLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}
