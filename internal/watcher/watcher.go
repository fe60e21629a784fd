// Package watcher reports marker files that appear in a dropbox root.
//
// A client copies an incoming folder into the dropbox root and then creates
// an empty marker file .MARKER_is_finished_<folder> next to it. The watcher
// emits an event once the marker has settled (its size and modification time
// stopped changing for the settle delay).
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a dropbox root for marker files. Only the root itself is
// watched; markers in subfolders are ignored.
type Watcher struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher
	root    string

	pending map[string]*pendingEvent // path -> pending event info
	mu      sync.Mutex               // protects pending and stopped
	stopped bool

	events chan Event
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup
}

// pendingEvent tracks a marker that may still be changing
type pendingEvent struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// New creates a marker watcher.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts.setDefaults()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		logger:  logger,
		opts:    opts,
		watcher: fw,
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Watch sets the dropbox root. It must be a directory.
func (w *Watcher) Watch(root string) error {
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("dropbox root %s is not a directory", root)
	}

	if err := w.watcher.Add(root); err != nil {
		return fmt.Errorf("failed to add watch: %w", err)
	}
	w.root = root
	w.logger.Debug("added watch", "path", root)
	return nil
}

// Existing returns the markers already present in the root, sorted by path.
// Call it after Watch so that no marker created in between is missed; a
// marker may then be reported twice, once here and once as an event.
func (w *Watcher) Existing() ([]Event, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list dropbox root: %w", err)
	}

	var out []Event
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := w.opts.folderName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Event{
			Type:    EventAdded,
			Path:    filepath.Join(w.root, e.Name()),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	slices.SortFunc(out, func(a, b Event) int {
		return strings.Compare(a.Path, b.Path)
	})
	return out, nil
}

// Start begins watching for events
// This method blocks until the context is cancelled
func (w *Watcher) Start(ctx context.Context) error {
	w.wg.Add(1)
	go w.processEvents(ctx)

	<-ctx.Done()
	return nil
}

// processEvents processes fsnotify events
func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				w.logger.Warn("dropping watcher error", "error", err)
			}
		}
	}
}

// handleFsnotifyEvent handles an fsnotify event with debouncing
func (w *Watcher) handleFsnotifyEvent(event fsnotify.Event) {
	path := event.Name
	if filepath.Dir(path) != w.root {
		return
	}
	if _, ok := w.opts.folderName(path); !ok {
		return
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.cancelPending(path)
		w.emit(Event{Type: EventRemoved, Path: path})
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Chmod) != 0 {
		w.startSettling(path)
	}
}

// startSettling begins the settling process for a marker
func (w *Watcher) startSettling(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if pending, exists := w.pending[path]; exists {
		pending.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		delete(w.pending, path)
		return
	}

	pending := &pendingEvent{
		size:    info.Size(),
		modTime: info.ModTime(),
	}
	pending.timer = time.AfterFunc(w.opts.SettleDelay, func() {
		w.checkSettled(path)
	})
	w.pending[path] = pending
}

// checkSettled emits the marker once its size and mtime are stable
func (w *Watcher) checkSettled(path string) {
	event, ok := w.settled(path)
	if !ok {
		return
	}
	defer w.wg.Done()
	w.emit(event)
}

// settled reports whether the marker at path stopped changing, restarting
// the timer when it did not. On success the caller owns one wg slot, so that
// Stop waits for the emit.
func (w *Watcher) settled(path string) (Event, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pending, exists := w.pending[path]
	if !exists || w.stopped {
		return Event{}, false
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		return Event{}, false
	}

	if info.Size() != pending.size || !info.ModTime().Equal(pending.modTime) {
		pending.size = info.Size()
		pending.modTime = info.ModTime()
		pending.timer = time.AfterFunc(w.opts.SettleDelay, func() {
			w.checkSettled(path)
		})
		return Event{}, false
	}

	delete(w.pending, path)
	name, _ := w.opts.folderName(path)
	w.wg.Add(1)
	return Event{
		Type:    EventAdded,
		Path:    path,
		Name:    name,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, true
}

// cancelPending cancels a pending event
func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if pending, exists := w.pending[path]; exists {
		pending.timer.Stop()
		delete(w.pending, path)
	}
}

// emit sends an event unless the watcher is stopping
func (w *Watcher) emit(event Event) {
	select {
	case w.events <- event:
	case <-w.done:
	}
}

// Events returns the channel for receiving marker events
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel for receiving errors
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop stops the watcher and releases resources
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.done)
	for _, pending := range w.pending {
		pending.timer.Stop()
	}
	clear(w.pending)
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()

	close(w.events)
	close(w.errors)
	return err
}
