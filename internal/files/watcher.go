package files

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc is invoked once per settled burst of changes to the watched file.
type ReloadFunc func(ctx context.Context) error

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Events        int
	Reloads       int
	ReloadErrors  int
	Errors        int
	LastEventTime time.Time
	LastEventOp   string
}

// Watcher reloads a dataset when its file changes on disk. It watches the
// parent directory so editors that save by rename are still seen, and it
// debounces bursts of writes into a single reload.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	reload   ReloadFunc
	logger   *slog.Logger

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	stats   WatcherStats
}

// NewWatcher creates a watcher for the file at path.
func NewWatcher(path string, debounce time.Duration, reload ReloadFunc, logger *slog.Logger) (*Watcher, error) {
	if reload == nil {
		return nil, errors.New("watcher: reload func is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watcher: resolve %s: %w", path, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		reload:   reload,
		logger:   logger.With(slog.String("component", "dataset_watcher")),
	}, nil
}

// Start begins watching. It returns once the watch is registered; events are
// handled on a background goroutine until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("watcher: watch %s: %w", dir, err)
	}

	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	w.logger.InfoContext(ctx, "Watching dataset file",
		slog.String("path", w.path),
		slog.Duration("debounce", w.debounce))

	go w.run(ctx, fw, w.stopCh, w.doneCh)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stopCh, doneCh, fw := w.stopCh, w.doneCh, w.watcher
	w.mu.Unlock()

	close(stopCh)
	<-doneCh
	if err := fw.Close(); err != nil {
		w.logger.Error("Error closing watcher", slog.String("error", err.Error()))
	}
	w.logger.Info("Dataset watcher stopped")
}

// Stats returns a copy of the watcher's counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return

		case <-stopCh:
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.record(event)
			// Reset restarts the quiet period; only the last event of a
			// burst fires.
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			w.logger.ErrorContext(ctx, "Watcher error", slog.String("error", err.Error()))

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			w.fire(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) record(event fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventOp = event.Op.String()
	w.logger.Debug("Dataset file event", slog.String("op", event.Op.String()))
}

func (w *Watcher) fire(ctx context.Context) {
	err := w.reload(ctx)

	w.mu.Lock()
	w.stats.Reloads++
	if err != nil {
		w.stats.ReloadErrors++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.WarnContext(ctx, "Reload after file change failed",
			slog.String("path", w.path),
			slog.String("error", err.Error()))
	}
}
