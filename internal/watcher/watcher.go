// Package watcher reports debounced changes to a fixed set of files.
// Parent directories are watched rather than the files themselves, so files
// replaced by rename (as every save in this module does) keep being seen.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ChangeHandler receives the distinct watched paths that changed during one
// debounce window.
type ChangeHandler func(paths []string) error

// FileWatcher watches named files.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	files     map[string]struct{}
	dirs      map[string]struct{}
	handlers  []ChangeHandler
	mutex     sync.RWMutex
}

// New creates a watcher whose events are grouped over delay.
func New(delay time.Duration) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &FileWatcher{
		watcher:   w,
		debouncer: newDebouncer(delay),
		files:     make(map[string]struct{}),
		dirs:      make(map[string]struct{}),
	}, nil
}

// AddFile watches path. Its directory must exist; the file need not.
func (fw *FileWatcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	fw.mutex.Lock()
	defer fw.mutex.Unlock()

	fw.files[abs] = struct{}{}
	if _, ok := fw.dirs[dir]; ok {
		return nil
	}
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	fw.dirs[dir] = struct{}{}
	return nil
}

// AddHandler registers a change handler.
func (fw *FileWatcher) AddHandler(h ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, h)
}

// Run dispatches events until ctx is done, then closes the watcher.
func (fw *FileWatcher) Run(ctx context.Context) error {
	defer fw.watcher.Close()
	defer fw.debouncer.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("File watcher error")
		case paths := <-fw.debouncer.output:
			fw.dispatch(paths)
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}

	fw.mutex.RLock()
	_, watched := fw.files[abs]
	fw.mutex.RUnlock()
	if !watched {
		return
	}

	log.Debug().Str("path", abs).Str("op", event.Op.String()).Msg("File event")
	fw.debouncer.add(abs)
}

func (fw *FileWatcher) dispatch(paths []string) {
	fw.mutex.RLock()
	handlers := append([]ChangeHandler(nil), fw.handlers...)
	fw.mutex.RUnlock()

	for _, h := range handlers {
		if err := h(paths); err != nil {
			log.Error().Err(err).Strs("paths", paths).Msg("File watcher handler failed")
		}
	}
}

// debouncer collects paths until no new one arrives for delay.
type debouncer struct {
	delay   time.Duration
	output  chan []string
	timer   *time.Timer
	pending map[string]struct{}
	stopped bool
	mutex   sync.Mutex
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		output:  make(chan []string, 10),
		pending: make(map[string]struct{}),
	}
}

func (d *debouncer) add(path string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	select {
	case d.output <- paths:
		d.pending = make(map[string]struct{})
	default:
		// Output full; retry after another window.
		d.timer = time.AfterFunc(d.delay, d.flush)
	}
}

func (d *debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
