// Package watcher delivers coalesced change signals for a small set of
// files. Filesystem notifications are used where the platform provides
// them; files whose directories cannot be watched fall back to mtime
// polling. Either way, bursts of events collapse into single signals.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type entry struct {
	path     string
	interval time.Duration
}

// Watcher watches registered files and publishes change signals on a
// capacity-one channel. A signal means "something changed since you last
// looked"; consumers re-read everything on each signal, so dropped
// duplicates are harmless.
type Watcher struct {
	debounce time.Duration
	entries  []entry
	signal   chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	closed  bool
	started bool

	fw     *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher. Changes arriving within the debounce window
// collapse into one signal; a zero debounce signals immediately.
func New(debounce time.Duration) *Watcher {
	return &Watcher{
		debounce: debounce,
		signal:   make(chan struct{}, 1),
	}
}

// Watch registers a file. The poll interval only matters if the file's
// directory cannot be watched and the watcher degrades to polling for it.
// Watch must be called before Start.
func (w *Watcher) Watch(path string, pollInterval time.Duration) {
	w.entries = append(w.entries, entry{path: filepath.Clean(path), interval: pollInterval})
}

// Start begins watching. Files whose parent directory cannot be added to
// the notification watch are polled instead, so Start degrades rather than
// fails when notifications are unavailable.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.closed {
		return nil
	}
	w.started = true

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("filesystem notifications unavailable, polling instead", "err", err)
		fw = nil
	}
	w.fw = fw

	watched := make(map[string]struct{}, len(w.entries))
	addedDirs := make(map[string]struct{})
	for _, e := range w.entries {
		if fw != nil {
			dir := filepath.Dir(e.path)
			if _, ok := addedDirs[dir]; !ok {
				if err := fw.Add(dir); err == nil {
					addedDirs[dir] = struct{}{}
				}
			}
			if _, ok := addedDirs[dir]; ok {
				watched[e.path] = struct{}{}
				continue
			}
			slog.Debug("falling back to polling", "path", e.path)
		}
		w.wg.Add(1)
		go w.poll(ctx, e)
	}

	if fw != nil {
		w.wg.Add(1)
		go w.readEvents(watched)
	}
	return nil
}

// Signal returns the change channel. It is never closed; shut consumers
// down through their own contexts.
func (w *Watcher) Signal() <-chan struct{} {
	return w.signal
}

// Close stops all watching. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.cancel != nil {
		w.cancel()
	}
	fw := w.fw
	w.mu.Unlock()

	var err error
	if fw != nil {
		err = fw.Close()
	}
	w.wg.Wait()
	return err
}

func (w *Watcher) readEvents(watched map[string]struct{}) {
	defer w.wg.Done()
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&relevant == 0 {
				continue
			}
			if _, ok := watched[filepath.Clean(ev.Name)]; ok {
				w.bump()
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			slog.Warn("file watch error", "err", err)
		}
	}
}

type fileState struct {
	exists  bool
	size    int64
	modTime time.Time
}

func statFile(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, size: info.Size(), modTime: info.ModTime()}
}

func (w *Watcher) poll(ctx context.Context, e entry) {
	defer w.wg.Done()
	interval := e.interval
	if interval <= 0 {
		interval = time.Second
	}
	prev := statFile(e.path)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := statFile(e.path)
			if cur != prev {
				prev = cur
				w.bump()
			}
		}
	}
}

// bump schedules a signal, restarting the debounce window.
func (w *Watcher) bump() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.debounce <= 0 {
		w.fire()
		return
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.fire)
		return
	}
	w.timer.Reset(w.debounce)
}

func (w *Watcher) fire() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}
