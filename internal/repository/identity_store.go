package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const identityFile = "session_id"

// Store persists the session identifier, the single durable key this client
// keeps. Everything else lives on the backend and is reconciled at startup.
type Store struct {
	path string
}

// New creates a Store rooted at dir; an empty dir resolves to
// <user config dir>/pdfchat. The directory is created on first save, not here.
func New(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("repository: resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "pdfchat")
	}
	return &Store{path: filepath.Join(dir, identityFile)}, nil
}

// Load reads the stored identifier. An absent file is not an error; it means
// this client has never been issued an identifier.
func (s *Store) Load() (string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("repository: read identity: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// Save writes the identifier durably. Written once per client installation;
// the write goes through a temp file and rename so a crash never leaves a
// truncated identity behind.
func (s *Store) Save(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("repository: identifier must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("repository: create state dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("repository: write identity: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("repository: commit identity: %w", err)
	}
	return nil
}

// Path returns the backing file location, mainly for logs.
func (s *Store) Path() string {
	return s.path
}
