package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aescanero/ordo/internal/application/broadcast"
	"github.com/aescanero/ordo/internal/application/orchestrator"
	"github.com/aescanero/ordo/internal/config"
	"github.com/aescanero/ordo/internal/flow"
	"github.com/aescanero/ordo/pkg/adapters/events/amqp"
	"github.com/aescanero/ordo/pkg/adapters/events/memory"
	redisevents "github.com/aescanero/ordo/pkg/adapters/events/redis"
	metrics "github.com/aescanero/ordo/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/ordo/pkg/adapters/storage"
	"github.com/aescanero/ordo/pkg/adapters/storage/file"
	memstorage "github.com/aescanero/ordo/pkg/adapters/storage/memory"
	"github.com/aescanero/ordo/pkg/adapters/storage/postgres"
	redisstorage "github.com/aescanero/ordo/pkg/adapters/storage/redis"
	"github.com/aescanero/ordo/pkg/ports"
	"github.com/aescanero/ordo/pkg/utl"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what the commands share. newRuntime is orchestrator.Instance
// in the binary; tests swap in orchestrator.New.
type app struct {
	cfgPath    string
	newRuntime func(opts ...orchestrator.Option) *orchestrator.Runtime
}

func newApp() *app {
	return &app{newRuntime: orchestrator.Instance}
}

// deps are the adapters built from the configuration
type deps struct {
	cfg      *config.Config
	logger   *utl.Logger
	registry *prometheus.Registry
	store    ports.SnapshotStore
	bus      ports.EventBus
	closers  []func() error
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "ordo",
		Short:         "ordo physical-design runtime",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "TOML config file overlaid on the environment (default $"+config.FileEnv+")")

	root.AddCommand(
		newServeCmd(a),
		newRunCmd(a),
		newDiffCmd(a),
	)
	return root
}

func (a *app) loadConfig() (*config.Config, error) {
	if a.cfgPath != "" {
		return config.LoadFrom(a.cfgPath)
	}
	return config.Load()
}

// setup builds the logger, metrics, snapshot store and event bus
func (a *app) setup(ctx context.Context) (*deps, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := utl.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	d := &deps{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	d.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := storage.NewRouter(file.NewSnapshotStore(cfg.Storage.Dir)).
		Handle(storage.SchemeMemory, memstorage.NewSnapshotStore())

	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		d.closers = append(d.closers, redisClient.Close)

		if err := redisClient.Ping(ctx).Err(); err != nil {
			d.close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Zap().Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
		router.Handle(storage.SchemeRedis, redisstorage.NewSnapshotStore(redisClient, cfg.Redis.SnapshotTTL, logger.Zap()))
	}

	if cfg.Postgres.URL != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		d.closers = append(d.closers, func() error { pool.Close(); return nil })

		pg := postgres.NewSnapshotStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			d.close()
			return nil, err
		}
		router.Handle(storage.SchemePostgres, pg)
	}
	d.store = router

	switch cfg.Events.Backend {
	case "redis":
		d.bus = redisevents.NewStreamsEventBus(redisClient, cfg.Redis.ConsumerGroup,
			fmt.Sprintf("ordo-%d", os.Getpid()), cfg.Redis.StreamMaxLen, logger.Zap())
	case "amqp":
		conn, ch, err := amqp.Dial(cfg.AMQP.URL)
		if err != nil {
			d.close()
			return nil, err
		}
		d.closers = append(d.closers, conn.Close)
		bus, err := amqp.NewEventBus(ch, cfg.AMQP.Exchange, logger.Zap())
		if err != nil {
			d.close()
			return nil, err
		}
		d.bus = bus
	default:
		d.bus = memory.NewEventBus(logger.Zap())
	}
	d.closers = append(d.closers, d.bus.Close)

	return d, nil
}

// close releases adapters in reverse order of creation
func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.logger.Zap().Warn("failed to release adapter", zap.Error(err))
		}
	}
	d.closers = nil
	_ = d.logger.Sync()
}

// startRuntime initializes the runtime with the flow interpreter and
// attaches the event broadcaster
func (a *app) startRuntime(d *deps) (*orchestrator.Runtime, *flow.Interpreter, *broadcast.Broadcaster, error) {
	threads, err := d.cfg.ThreadCount()
	if err != nil {
		return nil, nil, nil, err
	}

	r := a.newRuntime(
		orchestrator.WithLogger(d.logger),
		orchestrator.WithMetrics(metrics.NewCollector(d.registry)),
		orchestrator.WithSnapshotStore(d.store),
		orchestrator.WithThreads(threads),
		orchestrator.WithHealthInterval(d.cfg.Workers.HealthCheckInterval),
		orchestrator.WithShutdownTimeout(d.cfg.Timeouts.ToolShutdown),
	)

	interp := flow.NewInterpreter(d.logger)
	if err := r.Init(interp); err != nil {
		return nil, nil, nil, err
	}

	b := broadcast.New(d.bus, d.cfg.Events.Topic, d.logger)
	if err := b.Attach(r); err != nil {
		_ = r.Close()
		return nil, nil, nil, err
	}

	return r, interp, b, nil
}

func stopRuntime(d *deps, r *orchestrator.Runtime, b *broadcast.Broadcaster) {
	if err := b.Detach(); err != nil {
		d.logger.Zap().Warn("failed to detach broadcaster", zap.Error(err))
	}
	start := time.Now()
	if err := r.Close(); err != nil {
		d.logger.Zap().Error("runtime close error", zap.Error(err))
	}
	d.logger.Zap().Debug("runtime closed", zap.Duration("duration", time.Since(start)))
}
