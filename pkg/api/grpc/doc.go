// Package grpc exposes the runtime through the standard gRPC health
// protocol. The ordo.Runtime service is SERVING while the runtime is
// initialized and all of its worker pools are healthy.
package grpc
