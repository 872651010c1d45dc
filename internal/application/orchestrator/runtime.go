package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/ordo/internal/application/workers"
	"github.com/aescanero/ordo/internal/tools"
	"github.com/aescanero/ordo/pkg/odb"
	"github.com/aescanero/ordo/pkg/ports"
	"github.com/aescanero/ordo/pkg/utl"
	"go.uber.org/zap"
)

// Interpreter is the scripting front end embedding the runtime
type Interpreter interface {
	Name() string
}

// Observer is notified after successful design reads
type Observer = ports.Observer

type lifecycle int

const (
	stateCreated lifecycle = iota
	stateInitialized
	stateClosed
)

// Runtime owns the shared database, the tool set and the observer set.
// It is not safe for concurrent use; front ends serialize calls.
type Runtime struct {
	logger  *utl.Logger
	metrics ports.MetricsCollector
	store   ports.SnapshotStore
	lef     ports.LibraryCodec
	def     ports.LayoutCodec
	cdl     ports.CircuitWriter
	vlog    ports.NetlistReader

	initThreads     int
	healthInterval  time.Duration
	shutdownTimeout time.Duration

	state     lifecycle
	db        *odb.Database
	interp    Interpreter
	threads   int
	observers map[Observer]struct{}
	order     []tools.Tool
	health    *workers.HealthMonitor

	vnet *tools.VerilogNetwork
	sta  *tools.Sta
	stt  *tools.SteinerTreeBuilder
	ant  *tools.AntennaChecker
	dpl  *tools.Opendp
	grt  *tools.GlobalRouter
	rsz  *tools.Resizer
	rmp  *tools.Restructure
	cts  *tools.TritonCTS
	gpl  *tools.Replace
	dst  *tools.Distributed
	drt  *tools.TritonRoute
	ppl  *tools.IOPlacer
	tap  *tools.Tapcell
	mpl  *tools.MacroPlacer
	mpl2 *tools.MacroPlacer2
	dpo  *tools.Optdp
	fin  *tools.Finale
	rcx  *tools.Ext
	psm  *tools.PDNSim
	par  *tools.PartitionMgr
	pdn  *tools.PdnGen
	pad  *tools.ICeWall
	dft  *tools.Dft
}

var (
	instance     *Runtime
	instanceOnce sync.Once
)

// Instance returns the process-wide runtime, creating it on first call.
// Options are applied only by the first call. Only the command layer should
// use it; everything else receives the runtime explicitly.
func Instance(opts ...Option) *Runtime {
	instanceOnce.Do(func() {
		instance = New(opts...)
	})
	return instance
}

// New creates an independent runtime. Init must be called before use.
func New(opts ...Option) *Runtime {
	r := &Runtime{}
	defaultOptions(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init builds the database and every tool in dependency order, stores the
// interpreter and applies the initial thread budget.
func (r *Runtime) Init(interp Interpreter) error {
	switch r.state {
	case stateInitialized:
		return r.violation("Init", "runtime already initialized")
	case stateClosed:
		return r.violation("Init", "runtime already closed")
	}

	order, err := NewValidator().Validate(wiring)
	if err != nil {
		return r.violation("Init", err.Error())
	}

	r.db = odb.NewDatabase()
	r.interp = interp
	r.observers = make(map[Observer]struct{})
	r.threads = resolveThreads(r.initThreads)

	env := tools.Env{
		DB:       r.db,
		Logger:   r.logger,
		Metrics:  r.metrics,
		Threads:  r.threads,
		Register: func(o ports.Observer) { r.observers[o] = struct{}{} },
	}

	var pools []*workers.Pool
	r.order = make([]tools.Tool, 0, len(order))
	for _, spec := range order {
		t := spec.build(r, env)
		r.order = append(r.order, t)
		if p, ok := t.(interface{ Pool() *workers.Pool }); ok {
			pools = append(pools, p.Pool())
		}
	}

	r.health = workers.NewHealthMonitor(r.healthInterval, r.logger.Zap(), r.metrics, pools...)
	r.health.Start()

	r.state = stateInitialized
	r.metrics.SetToolCount(len(r.order))
	r.metrics.SetThreadCount(r.threads)
	r.metrics.SetObserverCount(len(r.observers))

	var name string
	if interp != nil {
		name = interp.Name()
	}
	r.logger.Info(utl.ORD, 1, "runtime initialized",
		zap.Int("tools", len(r.order)),
		zap.Int("threads", r.threads),
		zap.String("interpreter", name))
	return nil
}

// Close destroys the tools in reverse construction order, releases the
// database and drops any observer still registered.
func (r *Runtime) Close() error {
	switch r.state {
	case stateCreated:
		return r.violation("Close", "runtime not initialized")
	case stateClosed:
		return nil
	}

	r.health.Stop()

	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		d, ok := r.order[i].(tools.Destroyer)
		if !ok {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.shutdownTimeout)
		if err := d.Destroy(ctx); err != nil {
			r.logger.Warn(utl.ORD, 2, "tool shutdown failed",
				zap.String("tool", r.order[i].Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", r.order[i].Name(), err))
		}
		cancel()
	}

	if n := len(r.observers); n > 0 {
		r.logger.Debug(utl.ORD, 3, "dropping registered observers", zap.Int("observers", n))
	}
	r.observers = nil
	r.db.Clear()
	r.db = nil
	r.state = stateClosed
	r.metrics.SetObserverCount(0)

	r.logger.Info(utl.ORD, 4, "runtime closed")
	return errors.Join(errs...)
}

// violation reports an out-of-order call. The fatal entry ends the process
// with the default hook; with a non-exiting hook the error is returned.
func (r *Runtime) violation(op, msg string) error {
	r.logger.Fatal(utl.ORD, 5, "lifecycle violation",
		zap.String("op", op), zap.String("reason", msg))
	return fmt.Errorf("%w: %s: %s", ErrLifecycleViolation, op, msg)
}

// requireInit guards every operation that needs a built runtime
func (r *Runtime) requireInit(op string) error {
	switch r.state {
	case stateCreated:
		return r.violation(op, "called before Init")
	case stateClosed:
		return r.violation(op, "called after Close")
	}
	return nil
}

// Initialized reports whether Init has completed and Close has not run
func (r *Runtime) Initialized() bool {
	return r.state == stateInitialized
}

// Db returns the shared database, nil before Init
func (r *Runtime) Db() *odb.Database { return r.db }

// Logger returns the logger every tool reports through
func (r *Runtime) Logger() *utl.Logger { return r.logger }

// Metrics returns the metrics collector
func (r *Runtime) Metrics() ports.MetricsCollector { return r.metrics }

// Interp returns the interpreter passed to Init
func (r *Runtime) Interp() Interpreter { return r.interp }

// Health returns the tool pool health monitor, nil before Init
func (r *Runtime) Health() *workers.HealthMonitor { return r.health }

// ToolNames returns the short tool names in construction order
func (r *Runtime) ToolNames() []string {
	names := make([]string, len(r.order))
	for i, t := range r.order {
		names[i] = t.Name()
	}
	return names
}

// UnitsInitialized reports whether a technology with database units is
// loaded. It is safe to call at any time.
func (r *Runtime) UnitsInitialized() bool {
	return r.db != nil && r.db.DbUnitsPerMicron() > 0
}

// Core returns the bounding box of the block rows, or an empty rect
func (r *Runtime) Core() odb.Rect {
	if r.db == nil || r.db.Block() == nil {
		return odb.Rect{}
	}
	var core odb.Rect
	first := true
	for _, row := range r.db.Block().Rows {
		bb := row.Bbox(r.db.FindSite(row.Site))
		if first {
			core, first = bb, false
			continue
		}
		core = odb.Rect{
			XMin: min(core.XMin, bb.XMin),
			YMin: min(core.YMin, bb.YMin),
			XMax: max(core.XMax, bb.XMax),
			YMax: max(core.YMax, bb.YMax),
		}
	}
	return core
}

// Tool accessors. Each returns nil before Init.

func (r *Runtime) VerilogNetwork() *tools.VerilogNetwork { return r.vnet }
func (r *Runtime) Sta() *tools.Sta { return r.sta }
func (r *Runtime) SteinerTreeBuilder() *tools.SteinerTreeBuilder { return r.stt }
func (r *Runtime) AntennaChecker() *tools.AntennaChecker { return r.ant }
func (r *Runtime) Opendp() *tools.Opendp { return r.dpl }
func (r *Runtime) GlobalRouter() *tools.GlobalRouter { return r.grt }
func (r *Runtime) Resizer() *tools.Resizer { return r.rsz }
func (r *Runtime) Restructure() *tools.Restructure { return r.rmp }
func (r *Runtime) TritonCTS() *tools.TritonCTS { return r.cts }
func (r *Runtime) Replace() *tools.Replace { return r.gpl }
func (r *Runtime) Distributed() *tools.Distributed { return r.dst }
func (r *Runtime) TritonRoute() *tools.TritonRoute { return r.drt }
func (r *Runtime) IOPlacer() *tools.IOPlacer { return r.ppl }
func (r *Runtime) Tapcell() *tools.Tapcell { return r.tap }
func (r *Runtime) MacroPlacer() *tools.MacroPlacer { return r.mpl }
func (r *Runtime) MacroPlacer2() *tools.MacroPlacer2 { return r.mpl2 }
func (r *Runtime) Optdp() *tools.Optdp { return r.dpo }
func (r *Runtime) Finale() *tools.Finale { return r.fin }
func (r *Runtime) Ext() *tools.Ext { return r.rcx }
func (r *Runtime) PDNSim() *tools.PDNSim { return r.psm }
func (r *Runtime) PartitionMgr() *tools.PartitionMgr { return r.par }
func (r *Runtime) PdnGen() *tools.PdnGen { return r.pdn }
func (r *Runtime) ICeWall() *tools.ICeWall { return r.pad }
func (r *Runtime) Dft() *tools.Dft { return r.dft }
