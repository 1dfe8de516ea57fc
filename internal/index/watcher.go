package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/dagaz/internal/vault"
)

// EventCallback is called after a watcher-driven index change. op is one of
// the vault change operations.
type EventCallback func(op vault.Op, kind, path string)

// Watch starts an fsnotify watcher on the vault root and processes file
// change events until ctx is cancelled. Raw events are converted to
// vault-relative notifications and classified against the configured
// directory layout; anything outside it is ignored. It calls cb (if
// non-nil) after each successful index mutation.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a debounced reconciliation pass that re-runs Sync, since
// fsnotify reports only the old path of a rename.
func Watch(ctx context.Context, db *DB, store vault.Provider, layout vault.Layout, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	// reconcileTimer debounces full reconciliation after renames.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := Sync(db, store, layout, logger); err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories are added to the watcher; their contents are
			// picked up by a reconciliation pass.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					scheduleReconcile()
					continue
				}
			}

			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			change, ok := layout.Classify(vault.Notification{Path: rel, Op: classifyOp(ev.Op)})
			if !ok {
				continue
			}

			switch change.Op {
			case vault.OpCreated, vault.OpModified:
				data, readErr := store.Read(change.Path)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", change.Path), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := IndexFile(db, layout, change.Path, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", change.Path), slog.String("error", idxErr.Error()))
					continue
				}
				logger.Debug("watcher: indexed", slog.String("path", change.Path), slog.String("op", string(change.Op)))
				if cb != nil {
					cb(change.Op, string(change.Kind), change.Path)
				}

			case vault.OpDeleted:
				if delErr := db.DeleteDocument(change.Path); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", change.Path), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", change.Path))
				if cb != nil {
					cb(vault.OpDeleted, string(change.Kind), change.Path)
				}
				if ev.Op&fsnotify.Rename != 0 {
					// The new path arrives as a separate Create event only
					// when it lands inside a watched dir; reconcile to catch
					// the rest.
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// classifyOp maps fsnotify operations onto the three change kinds the
// engine understands. Rename is reported on the old path, so it counts as a
// delete.
func classifyOp(op fsnotify.Op) vault.Op {
	switch {
	case op&fsnotify.Create != 0:
		return vault.OpCreated
	case op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return vault.OpDeleted
	default:
		return vault.OpModified
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
