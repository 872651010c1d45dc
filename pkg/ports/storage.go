package ports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a SnapshotStore when a key holds no snapshot
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore persists serialized databases under a key
type SnapshotStore interface {
	// Save stores data under key, replacing any previous value
	Save(ctx context.Context, key string, data []byte) error

	// Load returns the data stored under key or an error wrapping ErrNotFound
	Load(ctx context.Context, key string) ([]byte, error)

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Exists reports whether key holds a snapshot
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the stored keys
	List(ctx context.Context) ([]string, error)
}
