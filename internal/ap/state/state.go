// Package state manages the persisted identity of the attachment point.
// The files seed the periodic updater and are written exactly once:
// re-provisioning must never clobber an existing identity.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File names inside the state directory
const (
	FileIA            = "ia"
	FileAccountID     = "account_id"
	FileAccountSecret = "account_secret"
)

// DefaultDir is where identity files live on a provisioned host
const DefaultDir = "/etc/scionlab"

// Store reads and writes identity files under a state directory
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the state directory
func (s *Store) Dir() string {
	return s.dir
}

// Read returns the trimmed content of a state file, or "" when the file
// does not exist.
func (s *Store) Read(name string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read state file %s: %w", name, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// WriteIfAbsent writes value to the named state file unless it already
// exists. Returns whether a write happened. First-write-wins: an existing
// file is never touched, regardless of its content.
func (s *Store) WriteIfAbsent(name, value string, perm os.FileMode) (bool, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create state directory: %w", err)
	}

	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if os.IsExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create state file %s: %w", name, err)
	}
	defer f.Close()

	if _, err := f.WriteString(value + "\n"); err != nil {
		return false, fmt.Errorf("failed to write state file %s: %w", name, err)
	}

	return true, nil
}

// PersistIdentity writes the identity triple first-write-wins, skipping empty
// values, and returns the names of the files actually written. The account
// secret is kept owner-only.
func (s *Store) PersistIdentity(ia, accountID, accountSecret string) ([]string, error) {
	var written []string

	entries := []struct {
		name  string
		value string
		perm  os.FileMode
	}{
		{FileIA, ia, 0o644},
		{FileAccountID, accountID, 0o644},
		{FileAccountSecret, accountSecret, 0o600},
	}

	for _, e := range entries {
		if e.value == "" {
			continue
		}
		ok, err := s.WriteIfAbsent(e.name, e.value, e.perm)
		if err != nil {
			return written, err
		}
		if ok {
			written = append(written, e.name)
		}
	}

	return written, nil
}
