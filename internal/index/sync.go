package index

import (
	"log/slog"
	"strings"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/checksum"
	"github.com/erland/pwa-whiteboard-sub000/internal/persist"
	"github.com/erland/pwa-whiteboard-sub000/internal/storage"
)

// Sync walks the board store and brings the index up to date:
//   - new/changed snapshots are decoded and upserted
//   - boards removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	files, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		disk[f.BoardID] = struct{}{}

		if checksums[f.BoardID] == f.Checksum {
			continue
		}

		data, err := store.Read(f.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexSnapshot(db, f.BoardID, data); err != nil {
			logger.Warn("sync: index failed", slog.String("board", f.BoardID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("board", f.BoardID))
		}
	}

	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if err := db.DeleteBoard(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("board", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("board", id))
			}
		}
	}

	return nil
}

// IndexSnapshot decodes a stored snapshot and upserts its summary and
// searchable text.
func IndexSnapshot(db BoardIndex, id string, data []byte) error {
	doc, _ := persist.Decode(data, board.Meta{ID: id})
	return IndexDocument(db, doc, checksum.Sum(data))
}

// IndexDocument upserts the summary of an in-memory document.
func IndexDocument(db BoardIndex, doc board.Document, sum string) error {
	name := doc.Meta.Name
	if name == "" {
		name = doc.Meta.ID
	}
	row := BoardRow{
		ID:          doc.Meta.ID,
		Name:        name,
		BoardType:   string(doc.Meta.BoardType),
		ObjectCount: len(doc.Objects),
		Checksum:    sum,
		UpdatedAt:   doc.Meta.UpdatedAt,
	}
	return db.UpsertBoard(row, searchBody(doc.Objects))
}

// searchBody joins the text content of text shapes and sticky notes.
func searchBody(objs []board.Object) string {
	var parts []string
	for _, o := range objs {
		if (o.Type == board.Text || o.Type == board.StickyNote) && strings.TrimSpace(o.Text) != "" {
			parts = append(parts, o.Text)
		}
	}
	return strings.Join(parts, "\n")
}
