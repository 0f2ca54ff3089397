package index

import (
	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/models"
)

// BoardIndex is the read/write surface of the board index. Consumers depend
// on it rather than *DB so they can be tested with fakes.
type BoardIndex interface {
	UpsertBoard(b BoardRow, body string) error
	DeleteBoard(id string) error
	GetChecksum(id string) (string, error)
	GetBoard(id string) (*BoardRow, error)
	ListBoards(limit, offset int, boardType string) ([]BoardRow, int, error)
	Search(query string, limit int) ([]models.SearchHit, error)
	AllChecksums() (map[string]string, error)
	AppendEvent(ev board.Event) (int64, error)
	Events(boardID string, afterSeq int64, limit int) ([]models.LoggedEvent, error)
	Close() error
}

var _ BoardIndex = (*DB)(nil)
