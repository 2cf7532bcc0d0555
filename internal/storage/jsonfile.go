package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONFileStore keeps each blob as <dir>/<namespace>/<key>.json. The file
// layout is deliberately human-readable so a roster can be inspected or
// hand-edited; the daemon watches this directory for exactly that reason.
type JSONFileStore struct {
	dir string
	mu  sync.Mutex
}

// OpenJSONFile creates (if needed) and opens the namespace directory under
// dir.
func OpenJSONFile(dir, namespace string) (*JSONFileStore, error) {
	root := filepath.Join(dir, namespace)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &JSONFileStore{dir: root}, nil
}

// Dir returns the namespace directory, for file watchers.
func (s *JSONFileStore) Dir() string { return s.dir }

func (s *JSONFileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Put implements Store.
func (s *JSONFileStore) Put(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Write-then-rename so a crash mid-write never truncates a collection.
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

// Get implements Store.
func (s *JSONFileStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

// Delete implements Store.
func (s *JSONFileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close implements Store. File handles are not held open, so this is a
// no-op.
func (s *JSONFileStore) Close() error { return nil }
