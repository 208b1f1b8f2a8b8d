// Package httpapi exposes the ops and data endpoints for the audit service.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"incident_audit/config"
	"incident_audit/extract"
	"incident_audit/internal/store"
	"incident_audit/metrics"
	"incident_audit/queue"
)

// Trigger is the run-request hook the POST /ops/run handler fires into.
type Trigger interface {
	Trigger(ctx context.Context, source string) (string, bool)
}

// Router builds HTTP handlers for /api and /ops.
type Router struct {
	cfg       config.Config
	store     *store.Store
	trigger   Trigger
	metrics   *metrics.Metrics
	extractor extract.Provider
	queue     *queue.Queue
}

func NewRouter(cfg config.Config, st *store.Store, trigger Trigger, m *metrics.Metrics, extractor extract.Provider, q *queue.Queue) *Router {
	return &Router{cfg: cfg, store: st, trigger: trigger, metrics: m, extractor: extractor, queue: q}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ops/health", r.health)
	mux.HandleFunc("/ops/status", r.status)
	mux.HandleFunc("/ops/run", r.run)
	mux.HandleFunc("/api/runs", r.runs)
	mux.HandleFunc("/api/runs/", r.runDetail)
	mux.HandleFunc("/api/metrics", r.regionMetrics)
	mux.HandleFunc("/api/extract", r.extract)
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if !r.queue.Healthy() {
		http.Error(w, "run queue not accepting tasks", http.StatusServiceUnavailable)
		return
	}
	if err := r.store.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	runs, err := r.store.ListRuns(req.Context(), 5)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{
		"recent_runs": runs,
		"metrics":     r.metrics.Snapshot(),
		"schedule":    r.cfg.Schedule,
		"inputs_dir":  r.cfg.InputsDir,
	})
}

func (r *Router) run(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := r.trigger.Trigger(req.Context(), "http")
	if !ok {
		http.Error(w, "run queue full", http.StatusTooManyRequests)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]any{"run_id": id, "status": "queued"}); err != nil {
		log.Printf("write json: %v", err)
	}
}

func (r *Router) runs(w http.ResponseWriter, req *http.Request) {
	limit := 50
	if raw := req.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	list, err := r.store.ListRuns(req.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []store.Run{}
	}
	respondJSON(w, list)
}

func (r *Router) runDetail(w http.ResponseWriter, req *http.Request) {
	id := strings.TrimPrefix(req.URL.Path, "/api/runs/")
	if id == "" {
		http.NotFound(w, req)
		return
	}
	run, err := r.store.GetRun(req.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.NotFound(w, req)
		return
	}
	respondJSON(w, run)
}

func (r *Router) regionMetrics(w http.ResponseWriter, req *http.Request) {
	runID := req.URL.Query().Get("run_id")
	if runID == "" {
		// Default to the most recent run so dashboards need no extra hop.
		runs, err := r.store.ListRuns(req.Context(), 1)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if len(runs) == 0 {
			respondJSON(w, []store.RegionRow{})
			return
		}
		runID = runs[0].ID
	}
	rows, err := r.store.ListRegionMetrics(req.Context(), runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []store.RegionRow{}
	}
	respondJSON(w, rows)
}

func (r *Router) extract(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.extractor == nil {
		http.Error(w, "llm extraction not configured", http.StatusServiceUnavailable)
		return
	}
	var body struct {
		Transcript string   `json:"transcript"`
		Fields     []string `json:"fields"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Transcript) == "" {
		http.Error(w, "transcript is required", http.StatusBadRequest)
		return
	}
	fields := body.Fields
	if len(fields) == 0 {
		fields = extract.Fields()
	}
	results, err := r.extractor.ExtractFields(req.Context(), body.Transcript, fields)
	if err != nil {
		// The provider returns zeroed defaults alongside the error; surface
		// both so callers can distinguish "empty" from "backend down".
		respondJSON(w, map[string]any{"fields": results, "error": err.Error()})
		return
	}
	respondJSON(w, map[string]any{"fields": results})
}

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}
