package api

import (
	"context"
	"io"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/boardservice"
	"github.com/erland/pwa-whiteboard-sub000/internal/engine"
	"github.com/erland/pwa-whiteboard-sub000/internal/export"
	"github.com/erland/pwa-whiteboard-sub000/internal/models"
)

// BoardService is what the handlers need from the board layer.
type BoardService interface {
	CreateBoard(ctx context.Context, name string, boardType board.BoardType) (board.Document, error)
	ListBoards(ctx context.Context, limit, offset int, boardType string) ([]models.BoardSummary, int, error)
	Board(ctx context.Context, id string) (board.Document, error)
	Open(ctx context.Context, id string) (*engine.Engine, error)
	ApplyRemoteEvent(ctx context.Context, id string, ev board.Event) (bool, error)
	DeleteBoard(ctx context.Context, id string) error
	Events(ctx context.Context, id string, afterSeq int64, limit int) ([]models.LoggedEvent, error)
	Search(ctx context.Context, query string, limit int) ([]models.SearchHit, error)
	Export(ctx context.Context, id, format string, w io.Writer, opts export.Options) error
}

var _ BoardService = (*boardservice.Service)(nil)
