// Package dashboard is the terminal shell of the POS: persisted session and
// preferences, section routing and the login flow.
package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Persisted keys.
const (
	KeyToken         = "token"
	KeyFullName      = "fullName"
	KeyUsername      = "username"
	KeyActiveSection = "activeSection"
	KeyTheme         = "theme"
)

// AllKeys lists every key removed on logout.
var AllKeys = []string{KeyToken, KeyFullName, KeyUsername, KeyActiveSection, KeyTheme}

// DefaultStorePath is $XDG_CONFIG_HOME/niangadou/storage.json, falling back to ~/.config.
func DefaultStorePath() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "niangadou", "storage.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "niangadou", "storage.json")
}

// Store is a small persisted key/value map. Every write re-reads the file and
// rewrites it whole; concurrent processes race with last-write-wins.
type Store struct {
	path string

	mu   sync.Mutex
	vals map[string]string
}

// OpenStore loads path. A missing file is an empty store.
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path}
	vals, err := s.read()
	if err != nil {
		return nil, err
	}
	s.vals = vals
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Get returns the value of key and whether it is set.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vals[key]
	return v, ok
}

// Set stores key=val.
func (s *Store) Set(key, val string) error {
	return s.update(func(m map[string]string) { m[key] = val })
}

// SetAll stores every pair of kv in one write.
func (s *Store) SetAll(kv map[string]string) error {
	return s.update(func(m map[string]string) {
		for k, v := range kv {
			m[k] = v
		}
	})
}

// Remove deletes keys.
func (s *Store) Remove(keys ...string) error {
	return s.update(func(m map[string]string) {
		for _, k := range keys {
			delete(m, k)
		}
	})
}

// Clear removes every session and preference key.
func (s *Store) Clear() error { return s.Remove(AllKeys...) }

func (s *Store) update(fn func(map[string]string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vals, err := s.read()
	if err != nil {
		return err
	}
	fn(vals)
	if err := s.write(vals); err != nil {
		return err
	}
	s.vals = vals
	return nil
}

func (s *Store) read() (map[string]string, error) {
	vals := map[string]string{}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return vals, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read storage: %w", err)
	}
	if len(b) == 0 {
		return vals, nil
	}
	if err := json.Unmarshal(b, &vals); err != nil {
		return nil, fmt.Errorf("parse storage %s: %w", s.path, err)
	}
	return vals, nil
}

func (s *Store) write(vals map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	b, err := json.MarshalIndent(vals, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write storage: %w", err)
	}
	return os.Rename(tmp, s.path)
}
