package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/aescanero/ordo/pkg/ports"
)

// SnapshotStore implements ports.SnapshotStore on the local filesystem.
// Keys are paths, relative ones resolved against Dir.
type SnapshotStore struct {
	Dir string
}

// NewSnapshotStore creates a store rooted at dir ("" means the working directory)
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{Dir: dir}
}

func (s *SnapshotStore) path(key string) string {
	if filepath.IsAbs(key) || s.Dir == "" {
		return key
	}
	return filepath.Join(s.Dir, key)
}

// Save writes data through a temporary file so readers never observe a
// partially written snapshot
func (s *SnapshotStore) Save(ctx context.Context, key string, data []byte) error {
	path := s.path(key)
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Load reads a snapshot file
func (s *SnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", ports.ErrNotFound, err)
	}
	return data, err
}

// Delete removes a snapshot file
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Exists reports whether the snapshot file exists
func (s *SnapshotStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// List returns the regular files directly under Dir
func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}
