// Package watch re-runs verification when document files change.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"aispverify/internal/logging"
)

// Handler is called once per settled document path.
type Handler func(ctx context.Context, path string)

// Stats tracks watcher activity.
type Stats struct {
	FilesCreated  int
	FilesModified int
	FilesDeleted  int
	Verifications int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
	LastEventType string
}

// DocumentWatcher watches a directory for *.yaml and *.yml documents and
// hands each changed file to a Handler once writes have settled.
type DocumentWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	dir         string
	handler     Handler
	debounceMap map[string]time.Time
	debounceDur time.Duration
	tick        time.Duration
	now         func() time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// Option configures a DocumentWatcher.
type Option func(*DocumentWatcher)

// WithDebounce sets how long a file must be quiet before it is handled.
func WithDebounce(d time.Duration) Option {
	return func(w *DocumentWatcher) {
		if d > 0 {
			w.debounceDur = d
			if d < w.tick {
				w.tick = d
			}
		}
	}
}

// New creates a watcher for dir. Start must be called to begin watching.
func New(dir string, handler Handler, opts ...Option) (*DocumentWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &DocumentWatcher{
		watcher:     watcher,
		dir:         dir,
		handler:     handler,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		tick:        100 * time.Millisecond,
		now:         time.Now,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. It does not block.
func (w *DocumentWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watch("Watching %s for document changes", w.dir)

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and releases the underlying watcher.
func (w *DocumentWatcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("Stopped watching %s", w.dir)
}

// Done is closed when the event loop exits.
func (w *DocumentWatcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a snapshot of watcher activity.
func (w *DocumentWatcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *DocumentWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

// IsDocument reports whether path names a YAML document.
func IsDocument(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func (w *DocumentWatcher) handleEvent(event fsnotify.Event) {
	if !IsDocument(event.Name) {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return
	}
	logging.Get(logging.CategoryWatch).Debug("%s event for %s", eventType, event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.stats.LastEventTime = now
	w.stats.LastEventPath = event.Name
	w.stats.LastEventType = eventType

	switch eventType {
	case "create":
		w.stats.FilesCreated++
	case "modify":
		w.stats.FilesModified++
	case "delete", "rename":
		w.stats.FilesDeleted++
	}
	w.debounceMap[event.Name] = now
}

// processSettled hands every path that has been quiet for the debounce
// window to the handler, in path order.
func (w *DocumentWatcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := w.now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	sort.Strings(settled)
	for _, path := range settled {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				logging.Get(logging.CategoryWatch).Debug("%s was removed, skipping", path)
				continue
			}
			logging.Get(logging.CategoryWatch).Error("failed to stat %s: %v", path, err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			continue
		}

		w.mu.Lock()
		w.stats.Verifications++
		w.mu.Unlock()
		w.handler(ctx, path)
	}
}
