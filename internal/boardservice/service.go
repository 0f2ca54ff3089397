// Package boardservice coordinates board storage, the index and the open
// board engines.
package boardservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/erland/pwa-whiteboard-sub000/internal/apperr"
	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/checksum"
	"github.com/erland/pwa-whiteboard-sub000/internal/clipboard"
	"github.com/erland/pwa-whiteboard-sub000/internal/engine"
	"github.com/erland/pwa-whiteboard-sub000/internal/export"
	"github.com/erland/pwa-whiteboard-sub000/internal/idgen"
	"github.com/erland/pwa-whiteboard-sub000/internal/index"
	"github.com/erland/pwa-whiteboard-sub000/internal/models"
	"github.com/erland/pwa-whiteboard-sub000/internal/persist"
)

// Export formats.
const (
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// Publisher receives board events after they have been applied and logged.
type Publisher interface {
	PublishBoardEvent(ev board.Event)
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher forwards applied events, e.g. to the SSE broker.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithBoardIDs replaces the board id generator.
func WithBoardIDs(g idgen.Generator) Option {
	return func(s *Service) { s.newBoardID = g }
}

// WithObjectIDs replaces the object id generator handed to engines.
func WithObjectIDs(g idgen.Generator) Option {
	return func(s *Service) { s.newObjectID = g }
}

// WithPasteOffset sets the same-board paste step in view pixels.
func WithPasteOffset(px float64) Option {
	return func(s *Service) { s.pasteOffset = px }
}

// WithDefaultBoardType sets the type of boards created without one.
func WithDefaultBoardType(t board.BoardType) Option {
	return func(s *Service) { s.defaultType = t }
}

// WithStyle sets the drawing style engines start with.
func WithStyle(st board.Style) Option {
	return func(s *Service) { s.style = st }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service owns the set of open boards. One clipboard is shared by all of
// them so a selection copied on one board can be pasted on another.
type Service struct {
	repo *persist.Repository
	db   index.BoardIndex
	clip *clipboard.Holder
	pub  Publisher
	log  *slog.Logger

	newBoardID  idgen.Generator
	newObjectID idgen.Generator
	pasteOffset float64
	defaultType board.BoardType
	style       board.Style
	now         func() time.Time

	mu      sync.Mutex
	engines map[string]*engine.Engine
}

// NewService creates a board service.
func NewService(repo *persist.Repository, db index.BoardIndex, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		db:          db,
		clip:        &clipboard.Holder{},
		log:         slog.Default(),
		newBoardID:  idgen.Default,
		newObjectID: idgen.Default,
		pasteOffset: clipboard.DefaultOffsetPx,
		defaultType: board.BoardAdvanced,
		style:       board.DefaultStyle(),
		now:         time.Now,
		engines:     map[string]*engine.Engine{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBoard stores a new empty board and indexes it.
func (s *Service) CreateBoard(_ context.Context, name string, boardType board.BoardType) (board.Document, error) {
	if boardType == "" {
		boardType = s.defaultType
	}
	if !slices.Contains(board.BoardTypes, boardType) {
		return board.Document{}, fmt.Errorf("boardservice: board type %q: %w", boardType, apperr.ErrInvalid)
	}
	now := s.now().UTC()
	doc := board.NewDocument(board.Meta{
		ID:        s.newBoardID(),
		Name:      strings.TrimSpace(name),
		BoardType: boardType,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if s.repo.Exists(doc.Meta.ID) {
		return board.Document{}, apperr.ErrAlreadyExists
	}
	if err := s.save(doc); err != nil {
		return board.Document{}, err
	}
	return doc, nil
}

// save writes doc and refreshes its index entry.
func (s *Service) save(doc board.Document) error {
	if err := s.repo.Save(doc); err != nil {
		return fmt.Errorf("boardservice: save %s: %w", doc.Meta.ID, err)
	}
	data, err := persist.Encode(doc)
	if err != nil {
		return err
	}
	if err := index.IndexDocument(s.db, doc, checksum.Sum(data)); err != nil {
		return fmt.Errorf("boardservice: index %s: %w", doc.Meta.ID, err)
	}
	return nil
}

// Save implements engine.Saver for open boards.
func (s *Service) Save(doc board.Document) error {
	doc.Meta.UpdatedAt = s.now().UTC()
	return s.save(doc)
}

// Open returns the engine for id, loading the board on first use.
func (s *Service) Open(_ context.Context, id string) (*engine.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.engines[id]; ok {
		return e, nil
	}
	doc, err := s.repo.Load(id)
	if err != nil {
		return nil, err
	}
	e := engine.New(doc,
		engine.WithSaver(s),
		engine.WithClipboard(s.clip),
		engine.WithLogger(s.log),
		engine.WithIDGenerator(s.newObjectID),
		engine.WithPasteOffset(s.pasteOffset),
		engine.WithStyle(s.style),
		engine.WithLocalEventHook(s.record),
	)
	s.engines[id] = e
	s.log.Debug("boardservice: opened", slog.String("board", id), slog.Int("objects", len(doc.Objects)))
	return e, nil
}

// Board returns the current state of a board.
func (s *Service) Board(ctx context.Context, id string) (board.Document, error) {
	e, err := s.Open(ctx, id)
	if err != nil {
		return board.Document{}, err
	}
	return e.State(), nil
}

// ApplyRemoteEvent applies an event from a collaborator and logs it.
func (s *Service) ApplyRemoteEvent(ctx context.Context, id string, ev board.Event) (bool, error) {
	e, err := s.Open(ctx, id)
	if err != nil {
		return false, err
	}
	applied, err := e.ApplyRemoteEvent(ev)
	if err != nil || !applied {
		return applied, err
	}
	if ev.BoardID == "" {
		ev.BoardID = id
	}
	s.record(ev)
	return true, nil
}

// record logs an applied event and publishes it.
func (s *Service) record(ev board.Event) {
	if _, err := s.db.AppendEvent(ev); err != nil {
		s.log.Warn("boardservice: log event failed",
			slog.String("board", ev.BoardID), slog.String("event", ev.ID), slog.String("error", err.Error()))
	}
	if s.pub != nil {
		s.pub.PublishBoardEvent(ev)
	}
}

// ListBoards returns indexed board summaries, newest first.
func (s *Service) ListBoards(_ context.Context, limit, offset int, boardType string) ([]models.BoardSummary, int, error) {
	rows, total, err := s.db.ListBoards(limit, offset, boardType)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.BoardSummary, len(rows))
	for i, r := range rows {
		items[i] = r.Summary()
	}
	return items, total, nil
}

// DeleteBoard closes the board if open and removes it from storage and index.
func (s *Service) DeleteBoard(_ context.Context, id string) error {
	s.mu.Lock()
	e, open := s.engines[id]
	delete(s.engines, id)
	s.mu.Unlock()
	if open {
		e.Close()
	}

	err := s.repo.Delete(id)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if ierr := s.db.DeleteBoard(id); ierr != nil {
		return ierr
	}
	return err
}

// Events returns the logged events of a board after seq.
func (s *Service) Events(_ context.Context, id string, afterSeq int64, limit int) ([]models.LoggedEvent, error) {
	return s.db.Events(id, afterSeq, limit)
}

// Search delegates text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]models.SearchHit, error) {
	return s.db.Search(query, limit)
}

// Export renders a board in format to w.
func (s *Service) Export(ctx context.Context, id, format string, w io.Writer, opts export.Options) error {
	doc, err := s.Board(ctx, id)
	if err != nil {
		return err
	}
	switch format {
	case FormatPNG:
		err = export.PNG(w, doc, opts)
	case FormatPDF:
		err = export.PDF(w, doc, opts)
	default:
		return fmt.Errorf("boardservice: export format %q: %w", format, apperr.ErrInvalid)
	}
	if errors.Is(err, export.ErrEmptyBoard) || errors.Is(err, export.ErrTooLarge) {
		return fmt.Errorf("boardservice: %w: %v", apperr.ErrInvalid, err)
	}
	return err
}

// OpenCount reports how many boards are loaded.
func (s *Service) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.engines)
}

// Close flushes and closes every open board.
func (s *Service) Close() {
	s.mu.Lock()
	engines := s.engines
	s.engines = map[string]*engine.Engine{}
	s.mu.Unlock()
	for id, e := range engines {
		e.Close()
		s.log.Debug("boardservice: closed", slog.String("board", id))
	}
}
