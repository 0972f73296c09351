package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// FileStore keeps the snapshot as a single JSON file. Saves go through a
// temp file in the same directory followed by a rename, so a concurrent
// reader sees either the old record or the new one, never a torn write.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the snapshot. A missing file, unparseable content, or a
// version mismatch all surface as ErrNotFound - the pipeline recomputes
// rather than crashing on stale data.
func (s *FileStore) Load(ctx context.Context) (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading cache %s: %w", s.path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("cache: %s is corrupt, forcing recompute: %v", s.path, err)
		return nil, ErrNotFound
	}
	if rec.Version != RecordVersion {
		log.Printf("cache: %s has version %d, want %d, forcing recompute", s.path, rec.Version, RecordVersion)
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Save writes the snapshot atomically.
func (s *FileStore) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding cache record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp cache file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publishing cache file: %w", err)
	}
	return nil
}

// Clear deletes the snapshot file. A missing file is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cache %s: %w", s.path, err)
	}
	return nil
}
