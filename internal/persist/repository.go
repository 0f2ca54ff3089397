package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/erland/pwa-whiteboard-sub000/internal/apperr"
	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/storage"
)

// Repository loads and saves board snapshots.
type Repository struct {
	store storage.Provider
	log   *slog.Logger
}

// NewRepository creates a repository on top of store.
func NewRepository(store storage.Provider, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.Default()
	}
	return &Repository{store: store, log: log}
}

// Load reads the board with id. A snapshot in an older format is migrated
// and written back; an unreadable one becomes an empty board.
func (r *Repository) Load(id string) (board.Document, error) {
	path := storage.PathForBoard(id)
	data, err := r.store.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return board.Document{}, apperr.ErrNotFound
		}
		return board.Document{}, fmt.Errorf("persist: load %s: %w", id, err)
	}

	doc, status := Decode(data, board.Meta{ID: id})
	switch status {
	case Migrated:
		r.log.Info("persist: migrated snapshot", slog.String("board", id))
		if err := r.Save(doc); err != nil {
			r.log.Warn("persist: write back failed", slog.String("board", id), slog.String("error", err.Error()))
		}
	case Fresh:
		r.log.Warn("persist: unreadable snapshot, starting empty", slog.String("board", id))
	}
	return doc, nil
}

// Exists reports whether a snapshot for id is stored.
func (r *Repository) Exists(id string) bool {
	_, err := r.store.Read(storage.PathForBoard(id))
	return err == nil
}

// Save writes doc. When the store rejects the payload for size it retries
// once with selection and viewport dropped.
func (r *Repository) Save(doc board.Document) error {
	path := storage.PathForBoard(doc.Meta.ID)
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	err = r.store.Write(path, data)
	if err == nil || !errors.Is(err, storage.ErrQuotaExceeded) {
		return err
	}

	r.log.Warn("persist: quota exceeded, retrying minimized", slog.String("board", doc.Meta.ID), slog.Int("bytes", len(data)))
	data, err = EncodeMinimal(doc)
	if err != nil {
		return err
	}
	if err := r.store.Write(path, data); err != nil {
		return fmt.Errorf("persist: save %s: %w", doc.Meta.ID, err)
	}
	return nil
}

// Delete removes the snapshot for id.
func (r *Repository) Delete(id string) error {
	if err := r.store.Delete(storage.PathForBoard(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return nil
}
