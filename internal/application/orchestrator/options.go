package orchestrator

import (
	"time"

	"github.com/aescanero/ordo/pkg/adapters/formats/cdl"
	"github.com/aescanero/ordo/pkg/adapters/formats/def"
	"github.com/aescanero/ordo/pkg/adapters/formats/lef"
	"github.com/aescanero/ordo/pkg/adapters/formats/verilog"
	"github.com/aescanero/ordo/pkg/adapters/storage"
	"github.com/aescanero/ordo/pkg/adapters/storage/file"
	"github.com/aescanero/ordo/pkg/adapters/storage/memory"
	"github.com/aescanero/ordo/pkg/ports"
	"github.com/aescanero/ordo/pkg/utl"
)

// Option configures a Runtime
type Option func(*Runtime)

// WithLogger sets the logger every tool reports through
func WithLogger(l *utl.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(m ports.MetricsCollector) Option {
	return func(r *Runtime) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithSnapshotStore sets where ReadDb, WriteDb and DiffDbs load and save
// persisted databases
func WithSnapshotStore(s ports.SnapshotStore) Option {
	return func(r *Runtime) {
		if s != nil {
			r.store = s
		}
	}
}

// WithLibraryCodec replaces the LEF codec
func WithLibraryCodec(c ports.LibraryCodec) Option {
	return func(r *Runtime) { r.lef = c }
}

// WithLayoutCodec replaces the DEF codec
func WithLayoutCodec(c ports.LayoutCodec) Option {
	return func(r *Runtime) { r.def = c }
}

// WithCircuitWriter replaces the CDL writer
func WithCircuitWriter(w ports.CircuitWriter) Option {
	return func(r *Runtime) { r.cdl = w }
}

// WithNetlistReader replaces the Verilog reader
func WithNetlistReader(n ports.NetlistReader) Option {
	return func(r *Runtime) { r.vlog = n }
}

// WithThreads sets the thread budget applied by Init. Zero or less means
// all available parallelism.
func WithThreads(n int) Option {
	return func(r *Runtime) { r.initThreads = n }
}

// WithHealthInterval sets how often tool pools are checked. Zero disables
// the periodic check.
func WithHealthInterval(d time.Duration) Option {
	return func(r *Runtime) { r.healthInterval = d }
}

// WithShutdownTimeout bounds how long Close waits for each tool
func WithShutdownTimeout(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.shutdownTimeout = d
		}
	}
}

func defaultOptions(r *Runtime) {
	r.logger = utl.NewNop()
	r.metrics = ports.NopCollector{}
	r.store = storage.NewRouter(file.NewSnapshotStore("")).
		Handle(storage.SchemeMemory, memory.NewSnapshotStore())
	r.lef = lef.NewCodec()
	r.def = def.NewCodec()
	r.cdl = cdl.NewWriter()
	r.vlog = verilog.NewCodec()
	r.initThreads = 1
	r.shutdownTimeout = 10 * time.Second
}
