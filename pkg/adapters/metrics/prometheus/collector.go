package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements ports.MetricsCollector using Prometheus
type Collector struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	notifications     *prometheus.CounterVec
	notifiedObservers *prometheus.CounterVec
	toolRuns          *prometheus.CounterVec
	toolDuration      *prometheus.HistogramVec
	observers         prometheus.Gauge
	threads           prometheus.Gauge
	tools             prometheus.Gauge
	workerPoolIdle    *prometheus.GaugeVec
	workerPoolBusy    *prometheus.GaugeVec
	workerPoolStopped *prometheus.GaugeVec
}

// NewCollector creates a collector registered with reg. A nil reg uses the
// default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordo_operations_total",
				Help: "Total number of pipeline operations",
			},
			[]string{"operation", "status"},
		),
		operationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ordo_operation_duration_seconds",
				Help:    "Pipeline operation duration in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"operation"},
		),
		notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordo_notifications_total",
				Help: "Total number of observer notifications fired",
			},
			[]string{"event"},
		),
		notifiedObservers: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordo_notified_observers_total",
				Help: "Total number of observer callbacks invoked",
			},
			[]string{"event"},
		),
		toolRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordo_tool_runs_total",
				Help: "Total number of parallel tool runs",
			},
			[]string{"tool", "status"},
		),
		toolDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ordo_tool_duration_seconds",
				Help:    "Parallel tool run duration in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"tool"},
		),
		observers: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ordo_observers",
				Help: "Number of registered observers",
			},
		),
		threads: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ordo_thread_count",
				Help: "Current thread budget",
			},
		),
		tools: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ordo_tools",
				Help: "Number of constructed tools",
			},
		),
		workerPoolIdle: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ordo_worker_pool_idle",
				Help: "Number of idle workers",
			},
			[]string{"pool"},
		),
		workerPoolBusy: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ordo_worker_pool_busy",
				Help: "Number of busy workers",
			},
			[]string{"pool"},
		),
		workerPoolStopped: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ordo_worker_pool_stopped",
				Help: "Number of stopped workers",
			},
			[]string{"pool"},
		),
	}
}

// RecordOperation records a finished pipeline operation
func (c *Collector) RecordOperation(operation, status string, duration time.Duration) {
	c.operations.WithLabelValues(operation, status).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordNotification records one fire of an observer event
func (c *Collector) RecordNotification(event string, observers int) {
	c.notifications.WithLabelValues(event).Inc()
	c.notifiedObservers.WithLabelValues(event).Add(float64(observers))
}

// RecordToolRun records a parallel tool run
func (c *Collector) RecordToolRun(tool, status string, duration time.Duration) {
	c.toolRuns.WithLabelValues(tool, status).Inc()
	c.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// SetObserverCount sets the number of registered observers
func (c *Collector) SetObserverCount(count int) {
	c.observers.Set(float64(count))
}

// SetThreadCount sets the current thread budget
func (c *Collector) SetThreadCount(threads int) {
	c.threads.Set(float64(threads))
}

// SetToolCount sets the number of constructed tools
func (c *Collector) SetToolCount(count int) {
	c.tools.Set(float64(count))
}

// RecordWorkerPoolStatus records a worker pool status
func (c *Collector) RecordWorkerPoolStatus(pool string, idle, busy, stopped int) {
	c.workerPoolIdle.WithLabelValues(pool).Set(float64(idle))
	c.workerPoolBusy.WithLabelValues(pool).Set(float64(busy))
	c.workerPoolStopped.WithLabelValues(pool).Set(float64(stopped))
}
