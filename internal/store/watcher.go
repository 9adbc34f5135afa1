package store

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reports edits made to the data files by someone other than this
// process, e.g. an operator fixing a record by hand.
type Watcher struct {
	store    *FileStore
	fsw      *fsnotify.Watcher
	onChange func(Kind)
	logger   hclog.Logger

	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher watches the directories holding the store's files. Directories
// are watched instead of files because Write replaces files by rename.
func NewWatcher(s *FileStore, onChange func(Kind), logger hclog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{s.Dir(), filepath.Join(s.Dir(), strconv.Itoa(s.Year()))} {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return &Watcher{
		store:    s,
		fsw:      fsw,
		onChange: onChange,
		logger:   logger,
		debounce: defaultDebounce,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Run dispatches change callbacks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			kind, ok := w.store.KindOf(ev.Name)
			if !ok {
				continue
			}
			w.schedule(ev.Name, kind)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

// schedule debounces bursts of events for one file into a single callback.
func (w *Watcher) schedule(path string, kind Kind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		own, err := w.store.OwnsContents(path)
		if err != nil {
			w.logger.Warn("cannot read changed file; skipping reload", "path", path, "error", err)
			return
		}
		if own {
			w.logger.Debug("ignoring internal write", "path", path)
			return
		}
		w.logger.Info("external file change detected", "kind", kind, "path", path)
		w.onChange(kind)
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
