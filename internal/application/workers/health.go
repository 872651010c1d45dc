package workers

import (
	"sort"
	"sync"
	"time"

	"github.com/aescanero/ordo/pkg/ports"
	"go.uber.org/zap"
)

// HealthMonitor periodically checks a set of pools and reports their status
type HealthMonitor struct {
	interval time.Duration
	logger   *zap.Logger
	metrics  ports.MetricsCollector

	mu      sync.RWMutex
	pools   map[string]*Pool
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// HealthStatus represents the health status of one worker pool
type HealthStatus struct {
	Pool           string
	TotalWorkers   int
	IdleWorkers    int
	BusyWorkers    int
	StoppedWorkers int
	Healthy        bool
	Timestamp      time.Time
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(interval time.Duration, logger *zap.Logger, metrics ports.MetricsCollector, pools ...*Pool) *HealthMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = ports.NopCollector{}
	}
	h := &HealthMonitor{
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		pools:    make(map[string]*Pool, len(pools)),
	}
	for _, p := range pools {
		h.Watch(p)
	}
	return h
}

// Watch adds a pool to the monitored set, replacing any pool of the same name
func (h *HealthMonitor) Watch(p *Pool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pools[p.Name()] = p
}

// Start starts the health monitor. Non-positive intervals disable the loop.
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running || h.interval <= 0 {
		return
	}
	h.running = true
	h.stopCh = make(chan struct{})
	h.doneCh = make(chan struct{})

	go h.run(h.stopCh, h.doneCh)
}

// Stop stops the health monitor and waits for its loop to exit
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	stopCh, doneCh := h.stopCh, h.doneCh
	h.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// run is the main health monitoring loop
func (h *HealthMonitor) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			h.CheckHealth()
		}
	}
}

// CheckHealth logs and records the status of every pool
func (h *HealthMonitor) CheckHealth() []*HealthStatus {
	statuses := h.GetStatus()
	for _, status := range statuses {
		h.logger.Debug("worker pool health check",
			zap.String("pool", status.Pool),
			zap.Int("total", status.TotalWorkers),
			zap.Int("idle", status.IdleWorkers),
			zap.Int("busy", status.BusyWorkers),
			zap.Int("stopped", status.StoppedWorkers),
			zap.Bool("healthy", status.Healthy))

		h.metrics.RecordWorkerPoolStatus(status.Pool,
			status.IdleWorkers,
			status.BusyWorkers,
			status.StoppedWorkers,
		)

		if !status.Healthy {
			h.logger.Warn("worker pool is unhealthy",
				zap.String("pool", status.Pool),
				zap.Int("stopped", status.StoppedWorkers),
				zap.Int("total", status.TotalWorkers))
		}
	}
	return statuses
}

// GetStatus returns the current status of every pool, sorted by pool name
func (h *HealthMonitor) GetStatus() []*HealthStatus {
	h.mu.RLock()
	pools := make([]*Pool, 0, len(h.pools))
	for _, p := range h.pools {
		pools = append(pools, p)
	}
	h.mu.RUnlock()
	sort.Slice(pools, func(i, j int) bool { return pools[i].Name() < pools[j].Name() })

	now := time.Now()
	out := make([]*HealthStatus, 0, len(pools))
	for _, p := range pools {
		p.mu.Lock()
		stopped := p.stopped
		p.mu.Unlock()

		workerStatuses := p.GetStatus()
		idle, busy, down := countStatus(workerStatuses)
		total := len(workerStatuses)
		out = append(out, &HealthStatus{
			Pool:           p.Name(),
			TotalWorkers:   total,
			IdleWorkers:    idle,
			BusyWorkers:    busy,
			StoppedWorkers: down,
			Healthy:        !stopped && total > 0 && down == 0,
			Timestamp:      now,
		})
	}
	return out
}

// IsHealthy returns true if every monitored pool is healthy
func (h *HealthMonitor) IsHealthy() bool {
	for _, status := range h.GetStatus() {
		if !status.Healthy {
			return false
		}
	}
	return true
}

func countStatus(statuses map[string]WorkerStatus) (idle, busy, stopped int) {
	for _, status := range statuses {
		switch status {
		case WorkerStatusIdle:
			idle++
		case WorkerStatusBusy:
			busy++
		case WorkerStatusStopped:
			stopped++
		}
	}
	return idle, busy, stopped
}
