// Package watch triggers an audit run when incident input files change.
package watch

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"incident_audit/config"
)

// debounceWindow collapses a burst of file events into one run trigger.
const debounceWindow = 2 * time.Second

// Trigger is the run-request hook the watcher fires into. TriggerRetry is
// expected to wait out a briefly-busy queue rather than fail fast, since a
// dropped watcher trigger means the changed inputs are never re-audited.
type Trigger interface {
	TriggerRetry(ctx context.Context, source string) (string, bool)
}

// Watcher monitors the inputs directory for new or rewritten incident files.
type Watcher struct {
	cfg     config.Config
	trigger Trigger
}

func New(cfg config.Config, trigger Trigger) *Watcher {
	return &Watcher{cfg: cfg, trigger: trigger}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.EnableWatcher {
		log.Println("watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		var timer *time.Timer
		fire := func() {
			if id, ok := w.trigger.TriggerRetry(ctx, "watcher"); ok {
				log.Printf("watcher triggered run %s", id)
			} else {
				log.Printf("watcher trigger dropped, run queue full")
			}
		}
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if !w.isInput(evt.Name) {
					continue
				}
				if timer == nil {
					timer = time.AfterFunc(debounceWindow, fire)
				} else {
					timer.Reset(debounceWindow)
				}
			case err := <-watcher.Errors:
				log.Printf("watcher error: %v", err)
			}
		}
	}()
	return watcher.Add(w.cfg.InputsDir)
}

func (w *Watcher) isInput(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl", ".geojson":
		return true
	default:
		return false
	}
}
