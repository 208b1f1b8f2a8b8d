// Package exporter drives scheduled and on-demand audit runs: it re-scores
// the incident inputs, evaluates region polygons, persists the metrics, and
// writes the per-state report bundles.
package exporter

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"incident_audit/audit"
	"incident_audit/config"
	"incident_audit/geo"
	"incident_audit/incident"
	"incident_audit/internal/store"
	"incident_audit/metrics"
	"incident_audit/pipeline"
	"incident_audit/queue"
	"incident_audit/report"
)

// RunResult summarizes one completed audit run.
type RunResult struct {
	RunID      string               `json:"run_id"`
	NIncidents int                  `json:"n_incidents"`
	NRegions   int                  `json:"n_regions"`
	Bundles    []report.StateBundle `json:"bundles"`
}

// Service owns the run lifecycle. All runs, whatever triggered them, go
// through the single-worker queue so they never overlap.
type Service struct {
	cfg     config.Config
	store   *store.Store
	metrics *metrics.Metrics
	queue   *queue.Queue
	cron    *cron.Cron
}

func New(cfg config.Config, st *store.Store, m *metrics.Metrics, q *queue.Queue) *Service {
	return &Service{cfg: cfg, store: st, metrics: m, queue: q, cron: cron.New()}
}

// Start schedules recurring runs and kicks off an immediate one. The cron
// entry only enqueues; the queue worker does the actual run.
func (s *Service) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.Trigger(ctx, "schedule")
	}); err != nil {
		return fmt.Errorf("bad schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()
	s.Trigger(ctx, "startup")
	return nil
}

// retryWindow bounds how long a watcher trigger waits out a busy queue
// before the run request is dropped.
const (
	retryWindow   = 5 * time.Second
	retryInterval = 250 * time.Millisecond
)

// Trigger enqueues an audit run. Returns the run id and whether the request
// was accepted; a full queue rejects the trigger rather than piling up runs.
func (s *Service) Trigger(ctx context.Context, source string) (string, bool) {
	runID := uuid.NewString()
	ok := s.queue.Enqueue(s.task(runID, source))
	if ok {
		s.recordQueueStats()
	}
	return runID, ok
}

// TriggerRetry enqueues like Trigger but holds the request for a short window
// when the queue is busy. The file watcher uses this path so a debounced
// burst of input rewrites still lands exactly one run.
func (s *Service) TriggerRetry(ctx context.Context, source string) (string, bool) {
	runID := uuid.NewString()
	ok, dropped := s.queue.EnqueueWithRetry(ctx, s.task(runID, source), retryWindow, retryInterval)
	if dropped {
		log.Printf("run queue still full after %s, dropping %s trigger %s", retryWindow, source, runID)
	}
	if ok {
		s.recordQueueStats()
	}
	return runID, ok
}

func (s *Service) task(runID, source string) queue.Task {
	return queue.Task{
		ID:     runID,
		Source: source,
		Work: func(taskCtx context.Context) error {
			_, err := s.run(taskCtx, runID, source)
			return err
		},
	}
}

func (s *Service) recordQueueStats() {
	stats := s.queue.Stats()
	s.metrics.UpdateQueue(stats.Length, stats.Capacity, stats.WorkerCount)
}

// RunOnce executes a run synchronously, bypassing the queue. Used by one-shot
// tooling; the service path goes through Trigger.
func (s *Service) RunOnce(ctx context.Context, source string) (RunResult, error) {
	return s.run(ctx, uuid.NewString(), source)
}

func (s *Service) run(ctx context.Context, runID, source string) (RunResult, error) {
	started := time.Now().UTC()
	if err := s.store.StartRun(ctx, runID, source, started); err != nil {
		return RunResult{RunID: runID}, fmt.Errorf("start run: %w", err)
	}
	log.Printf("run=%s source=%s started", runID, source)

	res, err := s.execute(ctx, runID)
	finished := time.Now().UTC()
	s.metrics.RecordRun(err, res.NRegions, res.NIncidents, finished.Unix())

	status := store.StatusSucceeded
	var errMsg *string
	if err != nil {
		status = store.StatusFailed
		msg := err.Error()
		errMsg = &msg
	}
	if finishErr := s.store.FinishRun(ctx, runID, status, res.NIncidents, res.NRegions, s.cfg.OutDir, errMsg, finished); finishErr != nil {
		log.Printf("run=%s finish record failed: %v", runID, finishErr)
	}
	if err != nil {
		log.Printf("run=%s failed: %v", runID, err)
		return res, err
	}
	log.Printf("run=%s done regions=%d incidents=%d bundles=%d duration_ms=%d",
		runID, res.NRegions, res.NIncidents, len(res.Bundles), finished.Sub(started).Milliseconds())
	return res, nil
}

func (s *Service) execute(ctx context.Context, runID string) (RunResult, error) {
	res := RunResult{RunID: runID}

	weights, err := pipeline.LoadWeights(s.cfg.WeightsPath)
	if err != nil {
		log.Printf("weights load failed: %v (using defaults)", err)
	}

	summary, err := pipeline.Run(s.cfg.InputsDir, s.cfg.OutDir, weights)
	if err != nil {
		return res, fmt.Errorf("pipeline: %w", err)
	}

	augmented, err := incident.LoadJSONL(summary.AugmentedPath)
	if err != nil {
		return res, fmt.Errorf("load augmented: %w", err)
	}
	analysis, err := incident.LoadJSONL(summary.AnalysisPath)
	if err != nil {
		return res, fmt.Errorf("load analysis: %w", err)
	}
	records := incident.Merge(analysis, augmented)
	res.NIncidents = len(records)

	polygons, err := geo.LoadFeatures(s.cfg.PolygonsPath)
	if err != nil {
		return res, fmt.Errorf("load polygons: %w", err)
	}

	var stations []incident.StationPoint
	if s.cfg.StationsPath != "" {
		feats, err := geo.LoadFeatures(s.cfg.StationsPath)
		if err != nil {
			return res, fmt.Errorf("load stations: %w", err)
		}
		stations = incident.StationsFromFeatures(feats)
	} else {
		stations = incident.StationsFromIncidents(augmented)
		log.Printf("no station dataset configured, mined %d stations from incidents", len(stations))
	}

	rows, err := audit.Evaluate(ctx, polygons, stations, records)
	if err != nil {
		return res, fmt.Errorf("evaluate: %w", err)
	}
	res.NRegions = len(rows)

	if err := s.store.InsertRegionMetrics(ctx, runID, rows); err != nil {
		return res, fmt.Errorf("persist metrics: %w", err)
	}

	bundles, err := report.BuildStateReports(s.cfg.OutDir, rows, polygons, stations, records, time.Now())
	if err != nil {
		return res, fmt.Errorf("build reports: %w", err)
	}
	res.Bundles = bundles
	return res, nil
}
