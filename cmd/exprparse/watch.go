package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceDelay collapses the burst of events editors emit for one save.
const debounceDelay = 100 * time.Millisecond

// watch runs fn on the contents of path once, then again after every change,
// until ctx is cancelled. Errors from fn are printed and do not stop the loop.
// The parent directory is watched so that editors that save by renaming a
// temporary file are still seen.
func (a *app) watch(ctx context.Context, path string, fn func(src string) error) error {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return withCode(ExitIOError, fmt.Errorf("failed to create watcher: %w", err))
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return withCode(ExitIOError, fmt.Errorf("failed to watch %s: %w", path, err))
	}

	a.runOnce(path, fn)
	a.logger.Info("Started watching", zap.String("file", path))

	// Each matching event restarts the timer; the file is read once the
	// burst has been quiet for debounceDelay.
	debounce := time.NewTimer(debounceDelay)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Stopping file watcher (context cancelled)")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			a.logger.Debug("File changed", zap.String("file", path), zap.Stringer("op", event.Op))
			debounce.Reset(debounceDelay)

		case <-debounce.C:
			a.runOnce(path, fn)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

func (a *app) runOnce(path string, fn func(src string) error) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return
	}
	if err := fn(string(content)); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
	}
}
