// Package watch re-runs the lineage pipeline whenever a query file or one of
// the resource files changes.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"sql-lineage/internal/scanner"
)

// DefaultDebounce is how long the watcher waits for a burst of events to settle.
const DefaultDebounce = 500 * time.Millisecond

// RunFunc performs one full pipeline run.
type RunFunc func(ctx context.Context) error

// Watcher monitors a queries directory and a set of resource files.
type Watcher struct {
	Root      string
	Walker    *scanner.FileWalker
	Resources []string
	Debounce  time.Duration
	Logger    *slog.Logger
}

// New returns a Watcher with the default debounce interval.
func New(root string, walker *scanner.FileWalker, resources []string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var res []string
	for _, r := range resources {
		if r == "" {
			continue
		}
		if abs, err := filepath.Abs(r); err == nil {
			res = append(res, abs)
		}
	}
	return &Watcher{
		Root:      root,
		Walker:    walker,
		Resources: res,
		Debounce:  DefaultDebounce,
		Logger:    logger,
	}
}

// Run executes run once, then again after every relevant change.
// Blocks until the context is cancelled.
func (w *Watcher) Run(ctx context.Context, run RunFunc) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	dirs, err := w.watchedDirs()
	if err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			w.Logger.Warn("cannot watch directory", "dir", dir, "error", err)
		}
	}

	w.runOnce(ctx, run)
	w.Logger.Info("watching for changes", "root", w.Root, "dirs", len(dirs))

	timer := time.NewTimer(w.Debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			// New subdirectories of the queries dir need their own watch
			if event.Has(fsnotify.Create) && w.isQueryDir(event.Name) {
				if err := fw.Add(event.Name); err != nil {
					w.Logger.Warn("cannot watch directory", "dir", event.Name, "error", err)
				}
				continue
			}
			if !w.Relevant(event) {
				continue
			}
			w.Logger.Debug("change detected", "file", event.Name, "op", event.Op.String())
			pending = true
			timer.Reset(w.Debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Logger.Error("watch error", "error", err)

		case <-timer.C:
			if pending {
				pending = false
				w.runOnce(ctx, run)
			}
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context, run RunFunc) {
	start := time.Now()
	if err := run(ctx); err != nil {
		w.Logger.Error("run failed", "error", err)
		return
	}
	w.Logger.Info("run complete", "duration", time.Since(start).Round(time.Millisecond))
}

// Relevant reports whether the event touches a resource file or a query
// file the walker would pick up.
func (w *Watcher) Relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if abs, err := filepath.Abs(event.Name); err == nil && slices.Contains(w.Resources, abs) {
		return true
	}
	return w.Walker.Includes(w.Root, event.Name)
}

// watchedDirs lists the queries dir and its subdirectories plus the
// directories holding the resource files.
func (w *Watcher) watchedDirs() ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.Root && w.skipDir(path) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, r := range w.Resources {
		dir := filepath.Dir(r)
		if !slices.Contains(dirs, dir) && !w.underRoot(dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}

func (w *Watcher) skipDir(path string) bool {
	return w.Walker.ExcludesDir(filepath.Base(path))
}

func (w *Watcher) isQueryDir(path string) bool {
	if !w.underRoot(path) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir() && !w.skipDir(path)
}

func (w *Watcher) underRoot(path string) bool {
	rootAbs, err := filepath.Abs(w.Root)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rootAbs, abs)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
