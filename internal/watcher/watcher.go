// Package watcher reports files created inside the vault.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/pastename/internal/models"
)

// Handler is called once per newly created file, on the watcher goroutine.
// Calls never overlap.
type Handler func(ctx context.Context, file models.ObservedFile)

// Watch starts an fsnotify watcher on the vault root and reports file
// creations until ctx is cancelled.
//
// New directories created at runtime are added to the watch list, and files
// that already landed in them before the watch was added are reported too.
// Hidden files and directories (leading '.') are ignored.
func Watch(ctx context.Context, vaultRoot string, logger *slog.Logger, handle Handler) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) || hidden(filepath.Base(ev.Name)) {
				continue
			}

			info, statErr := os.Stat(ev.Name)
			if statErr != nil {
				// Gone before we could look at it.
				continue
			}

			if info.IsDir() {
				if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
					logger.Warn("watcher: add new dir failed",
						slog.String("path", ev.Name),
						slog.String("error", addErr.Error()))
				} else {
					logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
				}
				reportNewDir(ctx, vaultRoot, ev.Name, logger, handle)
				continue
			}

			report(ctx, vaultRoot, ev.Name, info, logger, handle)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func report(ctx context.Context, vaultRoot, absPath string, info fs.FileInfo, logger *slog.Logger, handle Handler) {
	rel, err := filepath.Rel(vaultRoot, absPath)
	if err != nil {
		return
	}
	file := models.NewObservedFile(filepath.ToSlash(rel), info.ModTime())
	logger.Debug("watcher: created", slog.String("path", file.Path))
	handle(ctx, file)
}

// reportNewDir reports the files found in a directory created at runtime.
func reportNewDir(ctx context.Context, vaultRoot, dirPath string, logger *slog.Logger, handle Handler) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dirPath && hidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden(d.Name()) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		report(ctx, vaultRoot, path, info, logger, handle)
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
