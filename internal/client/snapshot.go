package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fundwise/fundwise/internal/models"
)

// SnapshotStore is a single-slot persisted copy of the last-known
// current user. The session manager reads it at startup to show an
// immediate identity while remote verification proceeds, and rewrites
// or clears it on every identity change.
type SnapshotStore interface {
	// Load returns the persisted user, or nil when no snapshot exists.
	Load() (*models.User, error)
	Save(user *models.User) error
	Clear() error
}

// FileSnapshot persists the snapshot as a JSON file.
type FileSnapshot struct {
	path string
}

var _ SnapshotStore = (*FileSnapshot)(nil)

// NewFileSnapshot creates a snapshot store at the given file path.
func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{path: path}
}

func (f *FileSnapshot) Load() (*models.User, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if user.ID == "" {
		return nil, nil
	}
	return &user, nil
}

func (f *FileSnapshot) Save(user *models.User) error {
	if user == nil {
		return f.Clear()
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(f.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (f *FileSnapshot) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}
