// Package checkpoint persists the timestamp of the last successful run.
//
// The checkpoint is external mutable state across runs: it is loaded once at
// run start and written at most once, at the orchestrator's commit point.
// An absent file means no prior run, i.e. crawl the full backlog.
package checkpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
)

// Store reads and writes the checkpoint file.
type Store struct {
	path string
}

// NewStore wraps the checkpoint file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the stored timestamp. ok is false when no prior run exists.
func (s *Store) Load() (ts string, ok bool, err error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}
	ts = strings.TrimSpace(string(b))
	if ts == "" {
		return "", false, nil
	}
	return ts, true, nil
}

// Save stores t in UTC, overwriting any previous value.
func (s *Store) Save(t time.Time) error {
	payload := t.UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(s.path, []byte(payload), 0o600); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", s.path, err)
	}
	return nil
}

// Reset removes the checkpoint so the next run crawls the full backlog.
// Resetting an absent checkpoint is not an error.
func (s *Store) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove checkpoint %s: %w", s.path, err)
	}
	return nil
}
