package grpc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/ordo/internal/application/orchestrator"
	"github.com/aescanero/ordo/pkg/utl"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthReflectsRuntime(t *testing.T) {
	r := orchestrator.New(orchestrator.WithLogger(utl.NewNop()), orchestrator.WithThreads(1))

	s, err := NewServer(&Config{Port: 0, Runtime: r, Lock: &sync.Mutex{}})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	go func() { _ = s.Start() }()
	defer func() { _ = s.Shutdown(context.Background()) }()

	conn, err := grpc.NewClient(s.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		return resp.Status
	}

	if got := check(); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status before Init = %v", got)
	}

	if err := r.Init(nil); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if got := s.Refresh(); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("Refresh() after Init = %v", got)
	}
	if got := check(); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status after Init = %v", got)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	s.Refresh()
	if got := check(); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status after Close = %v", got)
	}
}

func TestWatchStopsWithContext(t *testing.T) {
	s, err := NewServer(&Config{Port: 0})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer func() { _ = s.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Watch(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
