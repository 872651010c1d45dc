package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/aescanero/ordo/internal/application/orchestrator"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reflecting the runtime state
const ServiceName = "ordo.Runtime"

// Server represents the gRPC API server. It serves the standard health
// protocol for the runtime and its worker pools.
type Server struct {
	server   *grpc.Server
	listener net.Listener
	health   *health.Server
	runtime  *orchestrator.Runtime
	logger   *zap.Logger

	// guards runtime reads against the HTTP front end
	mu *sync.Mutex
}

// Config holds gRPC server configuration
type Config struct {
	Port    int
	Runtime *orchestrator.Runtime
	Logger  *zap.Logger
	// Lock is shared with the other front ends; nil means a private one
	Lock *sync.Mutex
}

// NewServer creates a new gRPC server
func NewServer(cfg *Config) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mu := cfg.Lock
	if mu == nil {
		mu = &sync.Mutex{}
	}

	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)

	s := &Server{
		server:   grpcServer,
		listener: listener,
		health:   hs,
		runtime:  cfg.Runtime,
		logger:   logger,
		mu:       mu,
	}
	s.Refresh()

	return s, nil
}

// Addr returns the listening address
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Refresh publishes the current runtime state to the health service
func (s *Server) Refresh() healthpb.HealthCheckResponse_ServingStatus {
	s.mu.Lock()
	serving := s.runtime != nil && s.runtime.Initialized() && s.runtime.Health().IsHealthy()
	s.mu.Unlock()

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch refreshes the health status every interval until ctx is done
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := s.Refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if status := s.Refresh(); status != last {
				s.logger.Info("runtime serving status changed", zap.String("status", status.String()))
				last = status
			}
		}
	}
}

// Start starts the gRPC server
func (s *Server) Start() error {
	s.logger.Info("starting gRPC server", zap.String("addr", s.listener.Addr().String()))

	if err := s.server.Serve(s.listener); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down gRPC server")

	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
	}
	_ = s.listener.Close()

	s.logger.Info("gRPC server shut down complete")
	return nil
}
