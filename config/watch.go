package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/civmesh/logging"
)

// WatchOptions configures Watch.
type WatchOptions struct {
	// Debounce collapses bursts of writes into one reload.
	Debounce time.Duration
	Logger   logging.Logger
}

// Watch reloads path whenever it is written and passes every valid result to
// fn. It blocks until ctx is done. The directory is watched so that editors
// replacing the file are noticed.
func Watch(ctx context.Context, path string, fn func(*Config), optFns ...func(o *WatchOptions)) error {
	opts := WatchOptions{Debounce: 200 * time.Millisecond, Logger: logging.NoOpLogger{}}
	for _, f := range optFns {
		f(&opts)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(opts.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			opts.Logger.Warn("Config watcher error", "path", abs, "error", err)

		case <-timer.C:
			cfg, err := Load(abs)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				opts.Logger.Warn("Ignoring invalid config", "path", abs, "error", err)
				continue
			}
			opts.Logger.Info("Config reloaded", "path", abs)
			fn(cfg)
		}
	}
}
