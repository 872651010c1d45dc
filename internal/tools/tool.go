package tools

import (
	"context"
	"time"

	"github.com/aescanero/ordo/internal/application/workers"
	"github.com/aescanero/ordo/pkg/odb"
	"github.com/aescanero/ordo/pkg/ports"
	"github.com/aescanero/ordo/pkg/utl"
	"go.uber.org/zap"
)

// Tool is implemented by every tool the runtime owns
type Tool interface {
	Name() string
}

// Destroyer is implemented by tools that hold resources to release on teardown
type Destroyer interface {
	Destroy(ctx context.Context) error
}

// ThreadAware is implemented by tools that run work on their own pool.
// SetThreadCount returns only after the pool has the new size.
type ThreadAware interface {
	SetThreadCount(n int) error
	ThreadCount() int
}

// DesignListener is implemented by tools that cache a view of the block
// and must refresh it when the design changes in process.
type DesignListener interface {
	DesignChanged(block *odb.Block)
}

// Env carries what every tool is wired with
type Env struct {
	DB      *odb.Database
	Logger  *utl.Logger
	Metrics ports.MetricsCollector
	// Threads is the initial pool size for parallel tools
	Threads int
	// Register adds an observer to the runtime during construction
	Register func(ports.Observer)
}

type base struct {
	name   string
	id     utl.ToolID
	db     *odb.Database
	logger *utl.Logger
}

func newBase(name string, id utl.ToolID, env Env) base {
	logger := env.Logger
	if logger == nil {
		logger = utl.NewNop()
	}
	return base{name: name, id: id, db: env.DB, logger: logger}
}

// Name returns the short tool name
func (b *base) Name() string {
	return b.name
}

// parallel is the part shared by every tool that owns a worker pool
type parallel struct {
	base
	pool    *workers.Pool
	metrics ports.MetricsCollector
}

func newParallel(name string, id utl.ToolID, env Env) parallel {
	b := newBase(name, id, env)
	metrics := env.Metrics
	if metrics == nil {
		metrics = ports.NopCollector{}
	}
	return parallel{
		base:    b,
		pool:    workers.NewPool(name, env.Threads, b.logger.Zap(), metrics),
		metrics: metrics,
	}
}

// SetThreadCount resizes the tool pool
func (p *parallel) SetThreadCount(n int) error {
	return p.pool.Resize(n)
}

// ThreadCount returns the current pool size
func (p *parallel) ThreadCount() int {
	return p.pool.Size()
}

// Pool exposes the worker pool for health monitoring
func (p *parallel) Pool() *workers.Pool {
	return p.pool
}

// Destroy stops the pool
func (p *parallel) Destroy(ctx context.Context) error {
	return p.pool.Shutdown(ctx)
}

// run fans n jobs out on the pool and records the run
func (p *parallel) run(ctx context.Context, op string, n int, fn func(ctx context.Context, i int) error) error {
	start := time.Now()
	err := p.pool.Do(ctx, n, fn)
	status := "success"
	if err != nil {
		status = "failed"
		p.logger.Warn(p.id, 1, "parallel run failed",
			zap.String("op", op), zap.Error(err))
	}
	p.metrics.RecordToolRun(p.name, status, time.Since(start))
	p.logger.Debug(p.id, 2, "parallel run finished",
		zap.String("op", op),
		zap.Int("jobs", n),
		zap.Int("threads", p.pool.Size()),
		zap.Duration("duration", time.Since(start)))
	return err
}
