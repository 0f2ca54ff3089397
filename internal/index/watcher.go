package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/erland/pwa-whiteboard-sub000/internal/storage"
)

// Change kinds reported to an EventCallback.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, boardID string)

const reconcileDelay = 200 * time.Millisecond

// Watch runs an fsnotify watcher on the board directory until ctx is
// cancelled, keeping the index in step with snapshots written or removed
// outside the service. cb, if non-nil, runs after each index mutation.
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

	notify := func(kind, id string) {
		if cb != nil {
			cb(kind, id)
		}
	}

	// Renames are reconciled after a short debounce.
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
			reconcile(db, store, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed", slog.String("path", ev.Name), slog.String("error", addErr.Error()))
					}
					scheduleReconcile()
					continue
				}
			}

			base := filepath.Base(ev.Name)
			if !strings.HasSuffix(base, storage.SnapshotExt) || strings.HasPrefix(base, ".") {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			id := storage.BoardIDFromPath(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				prev, _ := db.GetChecksum(id)
				if idxErr := IndexSnapshot(db, id, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("board", id), slog.String("error", idxErr.Error()))
					continue
				}
				kind := ChangeUpdated
				if prev == "" {
					kind = ChangeCreated
				}
				logger.Debug("watcher: indexed", slog.String("board", id), slog.String("op", kind))
				notify(kind, id)

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteBoard(id); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("board", id), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("board", id))
				notify(ChangeDeleted, id)

			case ev.Op&fsnotify.Rename != 0:
				// The new name, if still under root, arrives as a Create.
				if delErr := db.DeleteBoard(id); delErr == nil {
					notify(ChangeDeleted, id)
				}
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

// reconcile removes index entries with no snapshot on disk and indexes
// snapshots whose checksum differs from the index.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, notify func(kind, id string)) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	files, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		disk[f.BoardID] = struct{}{}
		if checksums[f.BoardID] == f.Checksum {
			continue
		}
		data, readErr := store.Read(f.Path)
		if readErr != nil {
			continue
		}
		if idxErr := IndexSnapshot(db, f.BoardID, data); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("board", f.BoardID))
			if _, known := checksums[f.BoardID]; known {
				notify(ChangeUpdated, f.BoardID)
			} else {
				notify(ChangeCreated, f.BoardID)
			}
		}
	}

	for id := range checksums {
		if _, ok := disk[id]; ok {
			continue
		}
		if delErr := db.DeleteBoard(id); delErr == nil {
			logger.Debug("reconcile: removed stale", slog.String("board", id))
			notify(ChangeDeleted, id)
		}
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
