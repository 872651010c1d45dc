// Package storage provides snapshot stores for persisted design databases.
//
// Implementations:
//   - file: local files, the default for plain paths
//   - memory: in-process map, the "mem:" scheme and tests
//   - redis: Redis keys with an optional TTL, the "redis:" scheme
//   - postgres: the ordo_snapshots table through pgx, the "pg:" scheme
//
// Router dispatches a path to one of them by its scheme prefix.
package storage
