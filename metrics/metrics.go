// Package metrics tracks operational counters for audit runs and the run
// queue, safe for concurrent use.
package metrics

import "sync/atomic"

// Metrics captures shared operational stats for the exporter and run queue.
type Metrics struct {
	queueLength   int64
	queueCapacity int64
	workerCount   int64

	exportRuns         int64
	failedRuns         int64
	regionsEvaluated   int64
	incidentsProcessed int64
	lastRunUnix        int64
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	QueueLength        int   `json:"queue_length"`
	QueueCapacity      int   `json:"queue_capacity"`
	WorkerCount        int   `json:"worker_count"`
	ExportRuns         int64 `json:"export_runs"`
	FailedRuns         int64 `json:"failed_runs"`
	RegionsEvaluated   int64 `json:"regions_evaluated"`
	IncidentsProcessed int64 `json:"incidents_processed"`
	LastRunUnix        int64 `json:"last_run_unix"`
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// UpdateQueue records the current queue stats.
func (m *Metrics) UpdateQueue(length, capacity, workers int) {
	atomic.StoreInt64(&m.queueLength, int64(length))
	atomic.StoreInt64(&m.queueCapacity, int64(capacity))
	atomic.StoreInt64(&m.workerCount, int64(workers))
}

// RecordRun increments run counters based on outcome and accumulates the
// volume the run covered.
func (m *Metrics) RecordRun(err error, regions, incidents int, finishedUnix int64) {
	atomic.AddInt64(&m.exportRuns, 1)
	if err != nil {
		atomic.AddInt64(&m.failedRuns, 1)
	}
	atomic.AddInt64(&m.regionsEvaluated, int64(regions))
	atomic.AddInt64(&m.incidentsProcessed, int64(incidents))
	atomic.StoreInt64(&m.lastRunUnix, finishedUnix)
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		QueueLength:        int(atomic.LoadInt64(&m.queueLength)),
		QueueCapacity:      int(atomic.LoadInt64(&m.queueCapacity)),
		WorkerCount:        int(atomic.LoadInt64(&m.workerCount)),
		ExportRuns:         atomic.LoadInt64(&m.exportRuns),
		FailedRuns:         atomic.LoadInt64(&m.failedRuns),
		RegionsEvaluated:   atomic.LoadInt64(&m.regionsEvaluated),
		IncidentsProcessed: atomic.LoadInt64(&m.incidentsProcessed),
		LastRunUnix:        atomic.LoadInt64(&m.lastRunUnix),
	}
}
