// Package tokenstore persists the session token across process restarts.
// The store holds exactly one opaque token plus small metadata (device ID)
// in a JSON file under the application data directory. This is a leaf
// package imported by both session/ and the CLI.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FilePerms restricts the token file to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the data directory.
const DirPerms = 0o700

// file is the on-disk format. The wrapper leaves room for metadata next
// to the token without a format break.
type file struct {
	Token string            `json:"token"`
	Meta  map[string]string `json:"meta,omitempty"`
}

// Store is a file-backed token store. Operations are safe to call
// repeatedly; the only ordering guarantee is read-after-write on the same
// store.
type Store struct {
	path   string
	logger *slog.Logger
}

// New creates a Store persisting to the given path.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{path: path, logger: logger}
}

// Path returns the token file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted token, or "" when none is stored. A missing,
// unreadable, or corrupt file is treated as "no token" — a well-formed
// device never fails a read, and an unparseable token is useless anyway.
func (s *Store) Load() string {
	tok, _ := s.load()

	return tok
}

// Meta returns the persisted metadata map, or nil when none is stored.
func (s *Store) Meta() map[string]string {
	_, meta := s.load()

	return meta
}

func (s *Store) load() (string, map[string]string) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		s.logger.Warn("token file unreadable, treating as logged out",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)

		return "", nil
	}

	var tf file
	if err := json.Unmarshal(data, &tf); err != nil {
		s.logger.Warn("token file corrupt, treating as logged out",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)

		return "", nil
	}

	return tf.Token, tf.Meta
}

// Save writes the token and metadata atomically (write-to-temp + rename)
// with 0600 permissions. Never logs token values.
func (s *Store) Save(token string, meta map[string]string) error {
	data, err := json.MarshalIndent(file{Token: token, Meta: meta}, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenstore: encoding: %w", err)
	}

	dir := filepath.Dir(s.path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenstore: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenstore: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: writing: %w", err)
	}

	// Flush to stable storage before rename so a power loss between close
	// and rename cannot leave an empty or partial token file.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenstore: closing: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("tokenstore: renaming: %w", err)
	}

	success = true

	return nil
}

// Remove deletes the persisted token. Removing an already-absent token is
// not an error.
func (s *Store) Remove() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("tokenstore: removing %s: %w", s.path, err)
	}

	return nil
}
