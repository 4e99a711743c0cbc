package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store persists reports as JSON files keyed by run ID.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on
// first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

// Save writes the report for its run ID, replacing any prior one.
func (s *Store) Save(r *Report) error {
	if r.RunID == "" {
		return fmt.Errorf("cannot save report without run ID")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	// Write-then-rename so a crash never leaves a truncated report.
	tmp := s.path(r.RunID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp, s.path(r.RunID)); err != nil {
		return fmt.Errorf("failed to finalize report: %w", err)
	}
	return nil
}

// Load reads the report for runID. Returns (nil, nil) when no report
// exists yet.
func (s *Store) Load(runID string) (*Report, error) {
	data, err := os.ReadFile(s.path(runID)) // #nosec G304
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", s.path(runID), err)
	}
	return &r, nil
}

// Delete removes the persisted report for runID, if present.
func (s *Store) Delete(runID string) error {
	err := os.Remove(s.path(runID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
