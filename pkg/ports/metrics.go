package ports

import "time"

// MetricsCollector records runtime activity
type MetricsCollector interface {
	RecordOperation(operation, status string, duration time.Duration)
	RecordNotification(event string, observers int)
	RecordToolRun(tool, status string, duration time.Duration)
	SetObserverCount(count int)
	SetThreadCount(threads int)
	SetToolCount(count int)
	RecordWorkerPoolStatus(pool string, idle, busy, stopped int)
}

// NopCollector discards all metrics
type NopCollector struct{}

func (NopCollector) RecordOperation(string, string, time.Duration) {}
func (NopCollector) RecordNotification(string, int)                {}
func (NopCollector) RecordToolRun(string, string, time.Duration)   {}
func (NopCollector) SetObserverCount(int)                          {}
func (NopCollector) SetThreadCount(int)                            {}
func (NopCollector) SetToolCount(int)                              {}
func (NopCollector) RecordWorkerPoolStatus(string, int, int, int)  {}
