package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoSession indicates the profile has no stored session.
var ErrNoSession = errors.New("no stored session")

// Store persists sessions as one JSON file per profile.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultStore roots the store under the user config directory.
func DefaultStore() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}
	return NewStore(filepath.Join(dir, "lindash", "profiles")), nil
}

func (s *Store) path(profile string) string {
	return filepath.Join(s.dir, profile+".json")
}

// Load reads the session stored for profile.
func (s *Store) Load(profile string) (Session, error) {
	data, err := os.ReadFile(s.path(profile))
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("read session file: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("decode session file: %w", err)
	}
	if session.AccessToken == "" {
		return Session{}, ErrNoSession
	}
	return session, nil
}

// Save writes the session for profile, creating the store directory if
// needed. The file is user-readable only.
func (s *Store) Save(profile string, session Session) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.path(profile), data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Delete removes the stored session for profile.
func (s *Store) Delete(profile string) error {
	err := os.Remove(s.path(profile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
