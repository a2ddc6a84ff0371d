// Package store persists the durable instance configurations to a flat JSON
// session file: a UTF-8 array of {"paths": [...], "title": "..."} objects.
// The file is guarded by an advisory lock on a sidecar .lock file so two
// supervisors cannot share one session, and writes go through a temporary
// file renamed over the target so a kill mid-write never leaves a truncated
// session behind.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/parsiad/tbman/internal/sentinel"
)

// ErrLocked is returned by Open when another process holds the session lock.
const ErrLocked = sentinel.Error("session file is locked by another process")

// Record is the persisted form of one instance configuration. Runtime fields
// (identifier, port, log directory) are deliberately absent: they are
// ephemeral and reassigned on replay.
type Record struct {
	Paths []string `json:"paths"`
	Title string   `json:"title"`
}

// Store reads and writes the session file. It holds the sidecar lock from
// Open until Close.
type Store struct {
	path string
	lock *flock.Flock
	log  *slog.Logger
}

// Open prepares a Store for the session file at path and acquires an
// exclusive advisory lock on path + ".lock". The lock is held until Close so
// a second supervisor pointed at the same session fails fast with ErrLocked
// instead of silently clobbering state.
//
// If logger is nil, slog.Default() is used as a fallback.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("session file path must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire session lock %s: %w", fl.Path(), ErrLocked)
	}

	return &Store{path: path, lock: fl, log: logger}, nil
}

// Path returns the session file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted configurations in file order. An absent file is
// not an error and yields an empty list. A file that exists but cannot be
// parsed is returned as an error; the caller decides how fatal that is
// (at supervisor startup it terminates the process).
func (s *Store) Load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file %s: %w", s.path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", s.path, err)
	}
	return records, nil
}

// Save serializes the records in order, overwriting the session file. The
// write goes to a temporary file in the same directory which is then renamed
// over the target, so readers never observe a partial file.
func (s *Store) Save(records []Record) error {
	// Marshal a non-nil slice so an empty registry persists as [] rather
	// than null.
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".tbman-session-")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace session file %s: %w", s.path, err)
	}
	return nil
}

// Close releases the session lock. The lock file is intentionally left on
// disk: removing it could invalidate a lock concurrently acquired by another
// process. Errors are logged, not returned; this is best-effort cleanup.
func (s *Store) Close() {
	if s.lock == nil {
		return
	}
	if err := s.lock.Close(); err != nil {
		s.log.Debug("release session lock", "path", s.lock.Path(), "error", err)
	}
	s.lock = nil
}
