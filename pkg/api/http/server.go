package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/aescanero/ordo/internal/application/orchestrator"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP API server
type Server struct {
	router   *gin.Engine
	server   *http.Server
	runtime  *orchestrator.Runtime
	gatherer prometheus.Gatherer
	logger   *zap.Logger

	// mu serializes every request that reaches the runtime
	mu *sync.Mutex
}

// Config holds HTTP server configuration
type Config struct {
	Port    int
	Runtime *orchestrator.Runtime
	Logger  *zap.Logger
	// Gatherer serves /metrics; nil means the default registry
	Gatherer prometheus.Gatherer
	// Lock is shared with the other front ends; nil means a private one
	Lock *sync.Mutex
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mu := cfg.Lock
	if mu == nil {
		mu = &sync.Mutex{}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware())

	s := &Server{
		router:   router,
		runtime:  cfg.Runtime,
		gatherer: gatherer,
		logger:   logger,
		mu:       mu,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.serialize(), s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1", s.serialize())
	{
		v1.GET("/design", s.handleGetDesign)
		v1.POST("/design/lef", s.handleReadLef)
		v1.POST("/design/def", s.handleReadDef)
		v1.POST("/design/verilog", s.handleReadVerilog)
		v1.POST("/design/link", s.handleLinkDesign)
		v1.POST("/design/write/lef", s.handleWriteLef)
		v1.POST("/design/write/def", s.handleWriteDef)
		v1.POST("/design/write/cdl", s.handleWriteCdl)
		v1.GET("/design/analysis", s.handleAnalysis)

		v1.POST("/db/read", s.handleReadDb)
		v1.POST("/db/write", s.handleWriteDb)
		v1.POST("/db/diff", s.handleDiffDbs)

		v1.GET("/threads", s.handleGetThreads)
		v1.PUT("/threads", s.handleSetThreads)
		v1.GET("/workers", s.handleListWorkers)
	}
}

// SetupWebSocket adds the design event stream to the server. The stream
// is long-lived and does not take the runtime lock.
func (s *Server) SetupWebSocket(handler interface{}) {
	if wsHandler, ok := handler.(interface {
		HandleEventStream(*gin.Context)
	}); ok {
		s.router.GET("/api/v1/events/ws", wsHandler.HandleEventStream)
	}
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
