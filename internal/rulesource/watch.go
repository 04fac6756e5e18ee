package rulesource

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/homemade/remap/mapping"
)

const (
	watchDebounce = 250 * time.Millisecond
	// watchMaxWait bounds how long a steady stream of events can hold a
	// reload back.
	watchMaxWait = 4 * watchDebounce
)

// Reloader is satisfied by *Refresher.
type Reloader interface {
	Reload(ctx context.Context) (ReloadResult, error)
}

// Watch reloads whenever a rule file in dir is written, created, renamed or
// removed. Bursts of events within the debounce window cause one reload,
// and a reload runs at least once per watchMaxWait while events keep coming.
// It blocks until ctx is done.
func Watch(ctx context.Context, dir string, reloader Reloader, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s %w", dir, err)
	}

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	var pendingSince time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !mapping.IsRuleFile(filepath.Base(event.Name)) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("rule file changed", slog.String("file", event.Name), slog.String("op", event.Op.String()))
			now := time.Now()
			if pendingSince.IsZero() {
				pendingSince = now
			}
			wait := watchDebounce
			if remaining := watchMaxWait - now.Sub(pendingSince); remaining < wait {
				wait = max(remaining, 0)
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(wait)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("rule watcher error", slog.String("error", err.Error()))
		case <-timer.C:
			pendingSince = time.Time{}
			if _, err := reloader.Reload(ctx); err != nil {
				logger.Error("rule set reload failed", slog.String("error", err.Error()))
			}
		}
	}
}
