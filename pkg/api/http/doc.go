// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Design loading and writing through the runtime pipeline
//   - Database persistence and comparison
//   - Thread budget, worker pools and design analysis queries
//   - Health checks
//   - Prometheus metrics
//
// The runtime is single-threaded with respect to its pipeline, so every
// request that touches it is serialized.
package http
