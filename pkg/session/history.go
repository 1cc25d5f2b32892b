package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// HistoryEntry is one successful query and its final answer
type HistoryEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	SessionID string            `json:"session_id"`
	Query     string            `json:"query"`
	Answer    string            `json:"answer"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// History is the cross-session log of answered queries. With a path it is
// persisted as JSONL; without one it lives in memory only.
type History struct {
	mu      sync.RWMutex
	path    string
	entries []HistoryEntry
}

// NormalizeQuestion trims whitespace and a leading '#' marker
func NormalizeQuestion(q string) string {
	q = strings.TrimSpace(q)
	q = strings.TrimPrefix(q, "#")
	return strings.TrimSpace(q)
}

// OpenHistory loads the history file at path, creating its directory
func OpenHistory(path string) (*History, error) {
	h := &History{path: path}
	if path == "" {
		return h, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return h, nil
		}
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var e HistoryEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil || e.Query == "" {
			continue
		}
		h.entries = append(h.entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	log.Info().Str("path", path).Int("entries", len(h.entries)).Msg("Conversation history loaded")
	return h, nil
}

// Add records an answered query. An entry whose normalized query and answer
// match an existing one is skipped.
func (h *History) Add(e HistoryEntry) error {
	e.Query = NormalizeQuestion(e.Query)
	if e.Query == "" || e.Answer == "" {
		return fmt.Errorf("history entry needs a query and an answer")
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, existing := range h.entries {
		if strings.EqualFold(existing.Query, e.Query) && existing.Answer == e.Answer {
			return nil
		}
	}

	if h.path != "" {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		file, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer file.Close()
		if _, err := file.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write history: %w", err)
		}
	}

	h.entries = append(h.entries, e)
	return nil
}

// SearchRelevant returns entries whose query contains query, case-insensitively,
// newest first. A limit of zero or less returns every match.
func (h *History) SearchRelevant(query string, limit int) []HistoryEntry {
	needle := strings.ToLower(NormalizeQuestion(query))
	if needle == "" {
		return nil
	}

	h.mu.RLock()
	var matches []HistoryEntry
	for _, e := range h.entries {
		if strings.Contains(strings.ToLower(e.Query), needle) {
			matches = append(matches, e)
		}
	}
	h.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Timestamp.After(matches[j].Timestamp)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Len returns the number of entries
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
