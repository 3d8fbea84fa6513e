package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the store when the registry file changes on disk.
// It watches the parent directory rather than the file itself because
// atomic saves replace the file by rename, which would silently drop a
// watch on the old inode.
type Watcher struct {
	store    *Store
	logger   *slog.Logger
	fw       *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher creates a watcher for the store's registry file.
func NewWatcher(store *Store, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("registry: create watcher: %w", err)
	}
	dir := filepath.Dir(store.Path())
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("registry: watch %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		store:    store,
		logger:   logger,
		fw:       fw,
		debounce: 250 * time.Millisecond,
	}, nil
}

// Run blocks until the context is cancelled, reloading the store after
// each settled change to the registry file. Editors and atomic saves
// produce bursts of events, so reloads are debounced. A reload failure
// is logged and the previously loaded document stays in effect.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()

	target := filepath.Clean(w.store.Path())
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("registry watch error", "error", err)

		case <-pending:
			pending = nil
			if err := w.store.Load(); err != nil {
				w.logger.Error("registry reload failed, keeping previous config", "error", err)
				continue
			}
			w.logger.Info("registry reloaded", "path", w.store.Path())
		}
	}
}
