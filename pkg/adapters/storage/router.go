package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aescanero/ordo/pkg/ports"
)

// Path schemes understood by the Router
const (
	SchemeRedis    = "redis"
	SchemePostgres = "pg"
	SchemeMemory   = "mem"
)

var knownSchemes = []string{SchemeRedis, SchemePostgres, SchemeMemory}

// ErrNoBackend is returned for a known scheme that has no store configured
var ErrNoBackend = errors.New("no snapshot backend configured")

// Router implements ports.SnapshotStore by dispatching "scheme:key" paths to
// the store registered for the scheme. Paths without a known scheme go to
// the fallback store.
type Router struct {
	fallback ports.SnapshotStore
	routes   map[string]ports.SnapshotStore
}

// NewRouter creates a router that sends unscoped paths to fallback
func NewRouter(fallback ports.SnapshotStore) *Router {
	return &Router{
		fallback: fallback,
		routes:   make(map[string]ports.SnapshotStore),
	}
}

// Handle registers store for scheme
func (r *Router) Handle(scheme string, store ports.SnapshotStore) *Router {
	r.routes[scheme] = store
	return r
}

// Resolve returns the store and key a path maps to
func (r *Router) Resolve(path string) (ports.SnapshotStore, string, error) {
	scheme, key, ok := strings.Cut(path, ":")
	if ok {
		if store, found := r.routes[scheme]; found {
			return store, key, nil
		}
		for _, known := range knownSchemes {
			if scheme == known {
				return nil, "", fmt.Errorf("%w: %s", ErrNoBackend, scheme)
			}
		}
	}
	if r.fallback == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrNoBackend, path)
	}
	return r.fallback, path, nil
}

// Save stores data at path
func (r *Router) Save(ctx context.Context, path string, data []byte) error {
	store, key, err := r.Resolve(path)
	if err != nil {
		return err
	}
	return store.Save(ctx, key, data)
}

// Load reads the data at path
func (r *Router) Load(ctx context.Context, path string) ([]byte, error) {
	store, key, err := r.Resolve(path)
	if err != nil {
		return nil, err
	}
	return store.Load(ctx, key)
}

// Delete removes the data at path
func (r *Router) Delete(ctx context.Context, path string) error {
	store, key, err := r.Resolve(path)
	if err != nil {
		return err
	}
	return store.Delete(ctx, key)
}

// Exists reports whether path holds data
func (r *Router) Exists(ctx context.Context, path string) (bool, error) {
	store, key, err := r.Resolve(path)
	if err != nil {
		return false, err
	}
	return store.Exists(ctx, key)
}

// List returns the fallback keys followed by every routed key as "scheme:key"
func (r *Router) List(ctx context.Context) ([]string, error) {
	var out []string
	if r.fallback != nil {
		keys, err := r.fallback.List(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
	}
	for _, scheme := range knownSchemes {
		store, ok := r.routes[scheme]
		if !ok {
			continue
		}
		keys, err := store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", scheme, err)
		}
		for _, k := range keys {
			out = append(out, scheme+":"+k)
		}
	}
	return out, nil
}
