package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period after the last write event
// before a watched file is considered settled.
const DefaultDebounceInterval = 100 * time.Millisecond

// WatchFile blocks until ctx is cancelled, calling onChange after every
// settled write/create/rename of path. The parent directory is watched
// rather than the file so editors that replace the file atomically are
// still observed. Errors returned by onChange are logged and watching
// continues.
func WatchFile(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func() error) error {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", path, err)
	}

	logger.Info("file watcher started",
		"path", abs,
		"debounce_ms", debounce.Milliseconds(),
	)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("file watcher stopped", "path", abs)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			logger.Debug("file event detected",
				"path", event.Name,
				"op", event.Op.String(),
			)

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if err := onChange(); err != nil {
					logger.Error("file change handler failed",
						"path", abs,
						"error", err,
					)
				}
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("file watcher error", "error", err)
		}
	}
}
