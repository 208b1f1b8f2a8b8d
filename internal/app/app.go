// Package app wires the audit service together.
package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"incident_audit/config"
	"incident_audit/exporter"
	"incident_audit/extract"
	"incident_audit/internal/httpapi"
	"incident_audit/internal/store"
	"incident_audit/internal/watch"
	"incident_audit/metrics"
	"incident_audit/queue"
)

const (
	runQueueCapacity = 4
	runTimeout       = 10 * time.Minute
)

// App owns the service components: store, run queue, exporter, watcher, and
// the HTTP surface.
type App struct {
	cfg      config.Config
	store    *store.Store
	metrics  *metrics.Metrics
	queue    *queue.Queue
	exporter *exporter.Service
	watcher  *watch.Watcher
	mux      *http.ServeMux
}

func New(cfg config.Config) (*App, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	// One worker: audit runs share the output directory and must not overlap.
	q := queue.New(runQueueCapacity, 1, runTimeout)
	exp := exporter.New(cfg, st, m, q)
	watcher := watch.New(cfg, exp)
	extractor, err := extract.NewProvider(cfg.LLM, nil)
	if err != nil {
		log.Printf("llm extraction disabled: %v", err)
		extractor = nil
	}
	mux := http.NewServeMux()
	httpapi.NewRouter(cfg, st, exp, m, extractor, q).Register(mux)
	return &App{cfg: cfg, store: st, metrics: m, queue: q, exporter: exp, watcher: watcher, mux: mux}, nil
}

// Run starts the queue worker, scheduler, watcher, and HTTP server, and
// blocks until the server exits.
func (a *App) Run(ctx context.Context) error {
	a.queue.Start(ctx)
	if err := a.exporter.Start(ctx); err != nil {
		return err
	}
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	srv := &http.Server{Addr: a.cfg.HTTPPort, Handler: a.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		a.queue.Stop(shutdownCtx)
	}()
	log.Printf("http listening on %s", a.cfg.HTTPPort)
	return srv.ListenAndServe()
}

func (a *App) Exporter() *exporter.Service { return a.exporter }
func (a *App) Store() *store.Store         { return a.store }
func (a *App) Mux() *http.ServeMux         { return a.mux }

// Close releases resources for one-shot callers that never invoke Run.
func (a *App) Close() error { return a.store.Close() }
