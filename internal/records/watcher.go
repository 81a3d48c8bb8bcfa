package records

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/nspace/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven store change.
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the ledger root and imports file
// changes until ctx is cancelled. cb (if non-nil) runs after each
// successful store mutation.
//
// Directories created at runtime are added to the watch list. Deletes,
// renames and updates schedule a reconciliation pass, which also retries
// files rejected for holding ids another file owned.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	notify := func(kind, path string) {
		if cb != nil {
			cb(kind, path)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
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
			reconcile(ctx, db, store, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name), slog.String("error", addErr.Error()))
					}
					// Files may land in the directory before it is watched.
					scheduleReconcile()
					continue
				}
			}

			if !storage.IsLedgerFile(ev.Name) {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				prev, _ := db.GetChecksum(ctx, rel)
				if err := importFile(ctx, db, rel, data); err != nil {
					logger.Warn("watcher: import failed", slog.String("path", rel), slog.String("error", err.Error()))
					continue
				}
				kind := EventUpdated
				if prev == "" {
					kind = EventCreated
				}
				logger.Debug("watcher: imported", slog.String("path", rel), slog.String("op", kind))
				notify(kind, rel)
				if kind == EventUpdated {
					// Ids the file dropped may unblock a conflicting file.
					scheduleReconcile()
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path only; the new one arrives
				// as a Create if it stays under a watched directory.
				if err := db.DeleteSource(ctx, rel); err != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				notify(EventDeleted, rel)
				// Picks up the new name after a rename and any file that
				// was blocked by ids this one held.
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile drops sources whose file is gone and imports files that are
// new or changed on disk.
func reconcile(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, notify EventCallback) {
	checksums, err := db.AllChecksums(ctx)
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteSource(ctx, p); err == nil {
			logger.Debug("reconcile: removed stale", slog.String("path", p))
			notify(EventDeleted, p)
		}
	}
	for p, cs := range disk {
		prev, known := checksums[p]
		if prev == cs {
			continue
		}
		data, err := store.Read(p)
		if err != nil {
			continue
		}
		if err := importFile(ctx, db, p, data); err != nil {
			logger.Warn("reconcile: import failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		kind := EventUpdated
		if !known {
			kind = EventCreated
		}
		logger.Debug("reconcile: imported", slog.String("path", p))
		notify(kind, p)
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
