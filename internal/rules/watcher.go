package rules

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce batches rapid editor write events (write, truncate,
// rename-into-place) into a single reload.
const reloadDebounce = 500 * time.Millisecond

// Watch monitors the rule file and reloads the set when it changes. It
// blocks until the context is cancelled. A reload that fails keeps the
// previous rules active, so a half-saved edit never disables
// moderation.
func (s *Set) Watch(ctx context.Context, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors that replace-on-save
	// (vim, sed -i) would otherwise orphan a file-level watch.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watching rules directory: %w", err)
	}

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed")
			}

			if filepath.Clean(event.Name) != s.path {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerCh = timer.C
			} else {
				timer.Reset(reloadDebounce)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil

			if err := s.Reload(); err != nil {
				logger.Warn("rule reload failed, keeping previous rules",
					slog.String("error", err.Error()),
				)

				continue
			}

			logger.Info("rules reloaded", slog.Int("rules", s.Len()))

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed")
			}

			logger.Warn("rules watcher error", slog.String("error", err.Error()))
		}
	}
}
