package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists the process-wide player identity: a single opaque id
// written at login and read at every session start. A missing id is not an
// error; it degrades the session to an unauthenticated observer.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath places the identity file under the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".funfriday-player"
	}
	return filepath.Join(dir, "funfriday", "player_id")
}

// Load returns the stored player id, or "" when none has been saved yet.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read identity: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save stores the player id, creating the parent directory if needed.
func (s *FileStore) Save(id string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}
