package fixtures

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ha1tch/fakesnow/pkg/fakesnow"
	"github.com/ha1tch/fakesnow/pkg/log"
)

// Watcher re-applies fixture files when they change. Removing a file does
// not undo what it created.
type Watcher struct {
	mu sync.Mutex

	dir    string
	conn   *fakesnow.Conn
	loader *Loader
	logger *log.Logger

	fsWatcher *fsnotify.Watcher

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// Events are collected and applied in one batch once the directory
	// has been quiet for debounceDelay.
	debounceDelay time.Duration
	pendingEvents map[string]fsnotify.Op
	eventTimer    *time.Timer

	// applyMu serialises batches; the session is not safe for concurrent use.
	applyMu sync.Mutex

	onApply func(f *File, err error)
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets how long the directory must be quiet before
// changed files are applied. Default is 200ms.
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithOnApply sets a callback run after each re-applied file.
func WithOnApply(fn func(f *File, err error)) WatcherOption {
	return func(w *Watcher) {
		w.onApply = fn
	}
}

// NewWatcher creates a watcher that applies changes from dir on conn. The
// watcher must be the only user of conn while it runs.
func NewWatcher(dir string, conn *fakesnow.Conn, logger *log.Logger, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	w := &Watcher{
		dir:           dir,
		conn:          conn,
		loader:        NewLoader(logger),
		logger:        logger,
		fsWatcher:     fsw,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		debounceDelay: 200 * time.Millisecond,
		pendingEvents: make(map[string]fsnotify.Op),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching the directory.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.fsWatcher.Add(w.dir); err != nil {
		return err
	}
	w.logger.System().Info("fixture watcher started", "dir", w.dir)

	go w.processEvents()
	return nil
}

// Stop stops the watcher and waits for a running batch to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	if w.eventTimer != nil {
		w.eventTimer.Stop()
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.applyMu.Lock()
	defer w.applyMu.Unlock()

	w.logger.System().Info("fixture watcher stopped")
	return w.fsWatcher.Close()
}

func (w *Watcher) processEvents() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.System().Error("fixture watcher error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !isScript(filepath.Base(event.Name)) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	// last operation wins for the same file
	w.pendingEvents[event.Name] = event.Op

	if w.eventTimer != nil {
		w.eventTimer.Stop()
	}
	w.eventTimer = time.AfterFunc(w.debounceDelay, w.processPendingEvents)
}

func (w *Watcher) processPendingEvents() {
	w.applyMu.Lock()
	defer w.applyMu.Unlock()

	w.mu.Lock()
	events := w.pendingEvents
	w.pendingEvents = make(map[string]fsnotify.Op)
	running := w.running
	w.mu.Unlock()
	if !running {
		return
	}

	var files []*File
	for path, op := range events {
		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			w.logger.System().Info("fixture removed, objects kept", "path", path)
			continue
		}
		f, err := w.loader.ReadFile(path)
		if err != nil {
			w.logger.System().Error("failed to read fixture", err, "path", path)
			w.notify(&File{Path: path, Name: filepath.Base(path)}, err)
			continue
		}
		if f.Skip() {
			continue
		}
		files = append(files, f)
	}
	Sort(files)

	for _, f := range files {
		_, err := w.loader.Apply(context.Background(), w.conn, f)
		if err != nil {
			w.logger.System().Error("failed to re-apply fixture", err, "path", f.Path)
		} else {
			w.logger.System().Info("fixture re-applied", "path", f.Path)
		}
		w.notify(f, err)
	}
}

func (w *Watcher) notify(f *File, err error) {
	if w.onApply != nil {
		w.onApply(f, err)
	}
}

// IsRunning reports whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
