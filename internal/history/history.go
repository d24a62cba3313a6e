// Package history persists recent transcriptions, most recent first.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is one completed transcription.
type Entry struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Store holds the bounded transcription history backed by a JSON file.
// Not safe for concurrent use; the coordinator serializes access.
type Store struct {
	path    string
	limit   int
	entries []Entry
}

// Open loads existing history from path. A missing or unreadable file yields
// an empty store: history is a convenience, never a startup blocker.
func Open(path string, limit int) *Store {
	s := &Store{path: path, limit: limit}

	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(raw, &s.entries); err != nil {
		s.entries = nil
	}
	s.truncate()
	return s
}

// Add prepends a transcription and persists the result.
func (s *Store) Add(text string, at time.Time) error {
	s.entries = append([]Entry{{Text: text, Timestamp: at}}, s.entries...)
	s.truncate()
	return s.save()
}

// Entries returns the history, most recent first.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// SetLimit adjusts the retention bound, trimming immediately if needed.
func (s *Store) SetLimit(limit int) {
	s.limit = limit
	s.truncate()
}

func (s *Store) truncate() {
	if s.limit > 0 && len(s.entries) > s.limit {
		s.entries = s.entries[:s.limit]
	}
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	raw, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
