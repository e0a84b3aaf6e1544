package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last change before it
// regenerates.
const DefaultDebounce = 100 * time.Millisecond

// watchedExts are the file types that trigger regeneration.
var watchedExts = map[string]bool{
	".csv":  true,
	".yaml": true,
	".yml":  true,
	".sql":  true,
	".star": true,
}

// WatchOptions configures Watch.
type WatchOptions struct {
	GenerateOptions
	// Debounce defaults to DefaultDebounce
	Debounce time.Duration
	// OnRun is called after every regeneration, with the discovery or
	// generation error if any
	OnRun func(*GenerateResult, error)
}

// Watch regenerates the project whenever a metadata, mapping, macro or
// template file changes. It blocks until ctx is done and then returns nil.
func (e *Engine) Watch(ctx context.Context, opts WatchOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range e.watchDirs() {
		if err := watchDirRecursive(watcher, dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		e.logger.Debug("watching directory", "dir", dir)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	var changed string
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchDirRecursive(watcher, event.Name); err != nil {
						e.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if !watchedExts[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			changed = event.Name
			timer.Reset(debounce)

		case <-timer.C:
			e.logger.Info("change detected, regenerating", "file", changed)
			result, err := e.regenerate(ctx, opts.GenerateOptions)
			if opts.OnRun != nil {
				opts.OnRun(result, err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("watcher error", "error", err)
		}
	}
}

// regenerate rediscovers the project and generates it.
func (e *Engine) regenerate(ctx context.Context, opts GenerateOptions) (*GenerateResult, error) {
	if _, err := e.Discover(ctx); err != nil {
		e.logger.Error("discover failed", "error", err)
		return nil, err
	}
	result, err := e.Generate(ctx, opts)
	if err != nil {
		e.logger.Error("generation failed", "error", err)
	}
	return result, err
}

// watchDirs returns the existing project input directories.
func (e *Engine) watchDirs() []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, dir := range []string{e.cfg.MetadataDir, e.cfg.MappingsDir, e.cfg.MacrosDir, e.cfg.TemplatesDir} {
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// watchDirRecursive adds a directory and all non-hidden subdirectories to the
// watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
