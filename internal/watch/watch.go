// Package watch re-runs a callback when a file changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 100 * time.Millisecond

// Watcher calls OnChange after Path stops changing for the debounce period.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	onChange func(path string)
}

// New creates a watcher for path. A debounce of zero or less uses DefaultDebounce.
func New(path string, debounce time.Duration, logger *slog.Logger, onChange func(path string)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{path: path, debounce: debounce, logger: logger, onChange: onChange}
}

// Run watches until ctx is cancelled. The parent directory is watched rather
// than the file itself so that editors replacing the file by rename are seen.
func (w *Watcher) Run(ctx context.Context) error {
	target, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", w.path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	w.logger.Debug("watching file", "path", target, "debounce", w.debounce)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				w.logger.Debug("file changed", "path", target, "op", event.Op.String())
				w.onChange(w.path)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("watcher dropped events", "error", err)
				continue
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}
