// Package trigger re-runs the extraction when the bags directory changes or on a
// cron schedule.
package trigger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultDebounce = 2 * time.Second

// RunFunc is one pass over the bags directory.
type RunFunc func(ctx context.Context) error

// Watch calls fn once the bags directory has been quiet for debounce after a
// change, until ctx is done. Recordings are directories, so directories created
// under dir are watched too, which catches a metadata.yaml written after its
// database. fn runs on the watching goroutine, runs never overlap.
func Watch(ctx context.Context, dir string, debounce time.Duration, fn RunFunc, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			addDir(watcher, filepath.Join(dir, entry.Name()), logger)
		}
	}

	logger.Info("Watching bags directory", zap.String("dir", dir), zap.Duration("debounce", debounce))

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					addDir(watcher, event.Name, logger)
				}
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}

			logger.Debug("Bags directory changed", zap.String("path", event.Name), zap.Stringer("op", event.Op))
			timer.Reset(debounce)
		case <-timer.C:
			if err := fn(ctx); err != nil {
				logger.Error("Run failed", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watcher error", zap.Error(err))
		}
	}
}

func addDir(watcher *fsnotify.Watcher, dir string, logger *zap.Logger) {
	if err := watcher.Add(dir); err != nil {
		logger.Warn("Failed to watch recording directory", zap.String("dir", dir), zap.Error(err))
	}
}

// Schedule calls fn on every tick of expr, a standard 5 field cron expression or
// a descriptor such as "@hourly", until ctx is done. A tick that fires while the
// previous run is still going is skipped.
func Schedule(ctx context.Context, expr string, fn RunFunc, logger *zap.Logger) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(expr, func() {
		logger.Info("Scheduled run", zap.String("schedule", expr))
		if err := fn(ctx); err != nil {
			logger.Error("Run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	c.Start()
	logger.Info("Scheduled runs", zap.String("schedule", expr))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
