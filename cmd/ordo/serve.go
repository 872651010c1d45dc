package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aescanero/ordo/internal/flow"
	"github.com/aescanero/ordo/pkg/api/grpc"
	"github.com/aescanero/ordo/pkg/api/http"
	"github.com/aescanero/ordo/pkg/api/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const healthRefresh = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var flowPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP, websocket and gRPC front ends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, flowPath)
		},
	}

	cmd.Flags().StringVar(&flowPath, "flow", "", "flow script to run before serving")
	return cmd
}

func (a *app) serve(ctx context.Context, flowPath string) error {
	d, err := a.setup(ctx)
	if err != nil {
		return err
	}
	defer d.close()
	logger := d.logger.Zap()

	logger.Info("starting ordo",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	r, interp, b, err := a.startRuntime(d)
	if err != nil {
		return err
	}
	defer stopRuntime(d, r, b)

	if flowPath != "" {
		script, err := flow.Load(flowPath)
		if err != nil {
			return err
		}
		if err := interp.Run(ctx, r, script); err != nil {
			return err
		}
	}

	// every front end goes through the same runtime lock
	lock := &sync.Mutex{}

	httpServer := http.NewServer(&http.Config{
		Port:     d.cfg.HTTPPort,
		Runtime:  r,
		Logger:   logger,
		Gatherer: d.registry,
		Lock:     lock,
	})
	httpServer.SetupWebSocket(websocket.NewHandler(d.bus, d.cfg.Events.Topic, logger))

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:    d.cfg.GRPCPort,
		Runtime: r,
		Logger:  logger,
		Lock:    lock,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() { errCh <- httpServer.Start() }()
	go func() { errCh <- grpcServer.Start() }()
	go grpcServer.Watch(ctx, healthRefresh)

	logger.Info("ordo started",
		zap.Int("http_port", d.cfg.HTTPPort),
		zap.Int("grpc_port", d.cfg.GRPCPort),
		zap.Int("threads", r.ThreadCount()))

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case serveErr = <-errCh:
		logger.Error("server failed", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	logger.Info("ordo shut down complete")
	return serveErr
}
