package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/ordo/pkg/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "ordo:snapshot:"

// SnapshotStore implements ports.SnapshotStore using Redis
type SnapshotStore struct {
	client redis.UniversalClient
	logger *zap.Logger
	ttl    time.Duration
}

// NewSnapshotStore creates a new Redis snapshot store. A zero ttl keeps
// snapshots until they are deleted.
func NewSnapshotStore(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *SnapshotStore {
	return &SnapshotStore{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Save stores data with the configured TTL
func (s *SnapshotStore) Save(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, getSnapshotKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.Debug("snapshot saved",
		zap.String("key", key),
		zap.Int("bytes", len(data)))

	return nil
}

// Load retrieves a snapshot
func (s *SnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, getSnapshotKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ports.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return data, nil
}

// Delete removes a snapshot
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, getSnapshotKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	s.logger.Debug("snapshot deleted", zap.String("key", key))
	return nil
}

// Exists checks if a snapshot is stored
func (s *SnapshotStore) Exists(ctx context.Context, key string) (bool, error) {
	result, err := s.client.Exists(ctx, getSnapshotKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}

	return result > 0, nil
}

// List returns all stored snapshot keys
func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	var cursor uint64
	var keys []string

	for {
		var batch []string
		var err error

		batch, cursor, err = s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if len(key) > len(keyPrefix) {
			out = append(out, key[len(keyPrefix):])
		}
	}

	return out, nil
}

// getSnapshotKey returns the Redis key for a snapshot
func getSnapshotKey(key string) string {
	return keyPrefix + key
}
