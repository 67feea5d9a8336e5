// Package checkpoint persists the sync worker's progress marker: the
// position of the last change event whose delivery was confirmed.
package checkpoint

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/logger"
)

// Store reads and writes a single opaque position string to a file on disk.
// Saves are atomic with respect to process crash: the value is written to a
// temp file in the same directory and renamed over the target, so a reader
// always sees either the old or the new position, never a partial write.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a Store for the given file path, creating parent
// directories as needed.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating checkpoint directory %s: %w", dir, err)
		}
	}
	return &Store{
		path:   path,
		logger: logger.WithComponent("checkpoint").With("path", path),
	}, nil
}

// Load returns the stored position, or "" when the checkpoint is absent or
// unreadable. An unreadable checkpoint is not an error: the worker resumes
// from the beginning of the change sequence and relies on idempotent
// upserts downstream.
func (s *Store) Load() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("checkpoint unreadable, resuming from scratch", "error", err)
		}
		return ""
	}
	position := strings.TrimSpace(string(data))
	if position == "" {
		s.logger.Warn("checkpoint file empty, resuming from scratch")
	}
	return position
}

// Save persists the position atomically via write-to-temp-then-rename.
func (s *Store) Save(position string) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(position); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing checkpoint file: %w", err)
	}
	return nil
}
