package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

// Evicter drops cached state for a file, or for every file when events
// were lost.
type Evicter interface {
	Evict(name string)
	Purge()
}

// Watcher evicts cache entries when documents of the data directory
// change on disk. Changes are collected until the directory has been
// quiet for the debounce interval, then evicted together.
type Watcher struct {
	root     string
	cache    Evicter
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher watches root on behalf of cache.
func NewWatcher(root string, cache Evicter, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		root:     root,
		cache:    cache,
		debounce: defaultDebounce,
		logger:   logger,
	}
}

// SetDebounce changes the quiet interval.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fsWatcher.Close() }()

	if err := fsWatcher.Add(w.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}
	w.logger.Info("watching data directory", "dir", w.root)

	pending := make(map[string]struct{})
	var (
		timer  *time.Timer
		settle <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			name, relevant := w.relevant(event)
			if !relevant {
				continue
			}
			pending[name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			settle = timer.C

		case <-settle:
			settle = nil
			for name := range pending {
				w.cache.Evict(name)
				w.logger.Info("data file changed", "file", name)
				delete(pending, name)
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.cache.Purge()
				w.logger.Warn("watcher overflow, cache purged")
				continue
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}
	name := filepath.Base(event.Name)
	return name, strings.HasSuffix(name, ".json")
}
