package audio

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher drops cached sounds when their files change on disk.
type Watcher struct {
	mu     sync.Mutex
	logger *slog.Logger
	player *Player

	paths map[string]struct{}
	dirs  map[string]struct{}
	fsw   *fsnotify.Watcher
	done  chan struct{}
}

// NewWatcher creates a watcher that invalidates sounds cached by player.
func NewWatcher(player *Player, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger: logger,
		player: player,
		paths:  make(map[string]struct{}),
		dirs:   make(map[string]struct{}),
	}
}

// Watch adds a sound file. The containing directory is watched so editors that
// replace files by rename are noticed.
func (w *Watcher) Watch(path string) error {
	if path == "" {
		return nil
	}
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.paths[path] = struct{}{}
	if w.fsw == nil {
		return nil
	}
	return w.addDirLocked(filepath.Dir(path))
}

// Unwatch removes a sound file.
func (w *Watcher) Unwatch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.paths, filepath.Clean(path))
}

func (w *Watcher) addDirLocked(dir string) error {
	if _, ok := w.dirs[dir]; ok {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.dirs[dir] = struct{}{}
	return nil
}

// Start begins watching until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create sound watcher: %w", err)
	}
	w.fsw = fsw
	w.done = make(chan struct{})

	for path := range w.paths {
		if err := w.addDirLocked(filepath.Dir(path)); err != nil {
			w.logger.Warn("cannot watch sound directory", "path", path, "error", err)
		}
	}

	go w.loop(ctx, fsw, w.done)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			path := filepath.Clean(ev.Name)
			w.mu.Lock()
			_, watched := w.paths[path]
			w.mu.Unlock()
			if watched {
				w.logger.Debug("sound file changed", "path", path)
				w.player.Invalidate(path)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("sound watcher error", "error", err)
		}
	}
}

// Stop stops watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw, done := w.fsw, w.done
	w.fsw = nil
	clear(w.dirs)
	w.mu.Unlock()

	if fsw == nil {
		return
	}
	_ = fsw.Close()
	<-done
}
