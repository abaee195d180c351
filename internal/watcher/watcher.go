// Package watcher triggers a settings reload when the settings file changes
// on disk.
//
// Filesystem editors produce bursts of events for a single save, so changes
// are debounced: the reload fires once per quiet interval, not once per
// event.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"shellhost/pkg/logging"
)

// Reloader is the operation triggered on a settings change. Implemented by
// the lifecycle manager.
type Reloader interface {
	ReloadAll(ctx context.Context) error
}

// defaultDebounce is how long to wait for further events before reloading.
const defaultDebounce = 500 * time.Millisecond

// Watcher observes one settings file and calls the reloader after changes
// settle.
type Watcher struct {
	path     string
	reloader Reloader
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	pending *time.Timer
	running bool
	stopCh  chan struct{}
}

// New creates a watcher for the given settings file. A zero debounce uses
// the default interval.
func New(path string, reloader Reloader, debounce time.Duration) *Watcher {
	if debounce == 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		path:     path,
		reloader: reloader,
		debounce: debounce,
	}
}

// Start begins watching. The parent directory is watched rather than the
// file itself so that atomic replace-by-rename saves keep working. Start on
// a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		w.mu.Unlock()
		return err
	}

	w.watcher = fw
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	go w.processEvents(ctx)

	logging.Info("Watcher", "Watching %s for settings changes", w.path)
	return nil
}

// Stop ends watching and cancels any pending reload.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
	w.watcher.Close()
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher", err, "Filesystem watcher error")
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	logging.Debug("Watcher", "Settings file event: %s", event.Op)
	w.scheduleReload(ctx)
}

// scheduleReload arms the debounce timer, replacing any pending one.
func (w *Watcher) scheduleReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.reloader.ReloadAll(ctx); err != nil {
			logging.Error("Watcher", err, "Reloading shells after settings change")
			return
		}
		logging.Info("Watcher", "Shells reloaded after settings change")
	})
}
