package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/ordo/pkg/ports"
	"go.uber.org/zap"
)

// ErrPoolStopped is returned by Do and Resize after Shutdown
var ErrPoolStopped = errors.New("worker pool stopped")

// Pool is a resizable set of worker goroutines owned by one tool
type Pool struct {
	name    string
	metrics ports.MetricsCollector
	logger  *zap.Logger

	mu      sync.Mutex
	workers []*worker
	next    int
	stopped bool

	jobs chan job
	done chan struct{}
	wg   sync.WaitGroup
}

type job struct {
	ctx context.Context
	run func(ctx context.Context)
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	quit    chan struct{}
	exited  chan struct{}
	mu      sync.RWMutex
	status  WorkerStatus
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a pool and starts size workers. Sizes below one are raised to one.
func NewPool(name string, size int, logger *zap.Logger, metrics ports.MetricsCollector) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = ports.NopCollector{}
	}
	p := &Pool{
		name:    name,
		metrics: metrics,
		logger:  logger.With(zap.String("pool", name)),
		jobs:    make(chan job),
		done:    make(chan struct{}),
	}
	p.mu.Lock()
	p.grow(max(size, 1))
	p.mu.Unlock()
	p.logger.Debug("worker pool started", zap.Int("workers", p.Size()))
	return p
}

// Name returns the pool name
func (p *Pool) Name() string {
	return p.name
}

// Size returns the current number of workers
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Resize changes the number of workers and returns once the pool has that
// many. Removed workers finish their current job first.
func (p *Pool) Resize(size int) error {
	size = max(size, 1)

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolStopped
	}
	current := len(p.workers)
	var removed []*worker
	switch {
	case size > current:
		p.grow(size - current)
	case size < current:
		removed = p.workers[size:]
		p.workers = p.workers[:size:size]
	}
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range removed {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			w.stop()
		}(w)
	}
	wg.Wait()

	if size != current {
		p.logger.Debug("worker pool resized", zap.Int("from", current), zap.Int("to", size))
	}
	p.report()
	return nil
}

// grow starts n workers. Caller holds p.mu.
func (p *Pool) grow(n int) {
	for i := 0; i < n; i++ {
		w := &worker{
			id:      fmt.Sprintf("%s-%d", p.name, p.next),
			pool:    p,
			quit:    make(chan struct{}),
			exited:  make(chan struct{}),
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.next++
		p.workers = append(p.workers, w)
		p.wg.Add(1)
		go w.run()
	}
}

// Do runs fn for every index in [0, n) on the pool workers and waits for all
// of them. The first failure cancels the context passed to the remaining
// calls; every error is returned joined.
func (p *Pool) Do(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return ErrPoolStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make([]error, n)
	var wg sync.WaitGroup
	var dispatchErr error

dispatch:
	for i := 0; i < n; i++ {
		wg.Add(1)
		j := job{ctx: ctx, run: func(ctx context.Context) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			if err := fn(ctx, i); err != nil {
				errs[i] = err
				cancel()
			}
		}}
		select {
		case p.jobs <- j:
		case <-ctx.Done():
			wg.Done()
			dispatchErr = ctx.Err()
			break dispatch
		case <-p.done:
			wg.Done()
			dispatchErr = ErrPoolStopped
			break dispatch
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}
	return dispatchErr
}

// Shutdown stops every worker, waiting for in-flight jobs until ctx expires
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.done)
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		p.report()
		p.logger.Debug("worker pool shut down")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool %s shutdown: %w", p.name, ctx.Err())
	}
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	p.mu.Lock()
	workers := make([]*worker, len(p.workers))
	copy(workers, p.workers)
	p.mu.Unlock()

	status := make(map[string]WorkerStatus, len(workers))
	for _, w := range workers {
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

func (p *Pool) report() {
	idle, busy, stopped := countStatus(p.GetStatus())
	p.metrics.RecordWorkerPoolStatus(p.name, idle, busy, stopped)
}

// run is the main worker loop
func (w *worker) run() {
	defer w.pool.wg.Done()
	defer close(w.exited)
	defer w.setStatus(WorkerStatusStopped)

	for {
		select {
		case <-w.quit:
			return
		case <-w.pool.done:
			return
		case j := <-w.pool.jobs:
			w.mu.Lock()
			w.status = WorkerStatusBusy
			w.lastJob = time.Now()
			w.mu.Unlock()

			j.run(j.ctx)

			w.setStatus(WorkerStatusIdle)
		}
	}
}

// stop signals the worker and waits for it to leave its loop
func (w *worker) stop() {
	close(w.quit)
	<-w.exited
}

func (w *worker) setStatus(s WorkerStatus) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
}
