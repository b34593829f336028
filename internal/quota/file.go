package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ignite/bulksend/internal/domain"
)

// FileStore keeps the quota state in a single JSON document on disk.
// This is the default store for a single-machine operator.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed quota store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted state. A missing file is a fresh start, not
// an error.
func (s *FileStore) Load(ctx context.Context) (domain.DailyQuotaState, error) {
	var state domain.DailyQuotaState

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("reading quota state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.DailyQuotaState{}, fmt.Errorf("parsing quota state: %w", err)
	}
	return state, nil
}

// Save writes the state atomically: the document goes to a temp file in
// the same directory and is renamed into place, so a crash mid-write
// never leaves a torn state file.
func (s *FileStore) Save(ctx context.Context, state domain.DailyQuotaState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating quota state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling quota state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".quota-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp quota file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing quota state: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("setting quota file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp quota file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing quota state file: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }
