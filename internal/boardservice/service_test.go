package boardservice

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erland/pwa-whiteboard-sub000/internal/apperr"
	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/export"
	"github.com/erland/pwa-whiteboard-sub000/internal/idgen"
	"github.com/erland/pwa-whiteboard-sub000/internal/persist"
	"github.com/erland/pwa-whiteboard-sub000/internal/storage"
	"github.com/erland/pwa-whiteboard-sub000/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []board.Event
}

func (r *recorder) PublishBoardEvent(ev board.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestService(t *testing.T) (*Service, *storage.FS, *recorder) {
	t.Helper()
	_, store := testutil.TestBoards(t)
	db := testutil.TestDB(t)
	pub := &recorder{}
	svc := NewService(persist.NewRepository(store, nil), db,
		WithPublisher(pub),
		WithBoardIDs(idgen.Sequence("board-")),
		WithObjectIDs(idgen.Sequence("obj-")),
	)
	t.Cleanup(svc.Close)
	return svc, store, pub
}

func TestCreateListAndOpen(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.CreateBoard(ctx, "  Plan  ", board.BoardMindmap)
	if err != nil {
		t.Fatalf("CreateBoard: %v", err)
	}
	if doc.Meta.ID != "board-1" || doc.Meta.Name != "Plan" {
		t.Errorf("meta = %+v", doc.Meta)
	}
	if _, err := store.Read(storage.PathForBoard("board-1")); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}

	items, total, err := svc.ListBoards(ctx, 10, 0, "")
	if err != nil || total != 1 || items[0].Name != "Plan" || items[0].BoardType != "mindmap" {
		t.Fatalf("ListBoards = %+v, %d, %v", items, total, err)
	}

	e1, err := svc.Open(ctx, "board-1")
	if err != nil {
		t.Fatal(err)
	}
	e2, _ := svc.Open(ctx, "board-1")
	if e1 != e2 || svc.OpenCount() != 1 {
		t.Error("engine should be cached")
	}
}

func TestCreateBoardDefaultsAndValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	doc, err := svc.CreateBoard(ctx, "", "")
	if err != nil || doc.Meta.BoardType != board.BoardAdvanced {
		t.Errorf("default type: %+v %v", doc.Meta, err)
	}
	if _, err := svc.CreateBoard(ctx, "x", "weird"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("unknown type: %v", err)
	}
}

func TestOpenMissing(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Open(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestLocalEventsAreLoggedPublishedAndSaved(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	doc, _ := svc.CreateBoard(ctx, "Notes", board.BoardAdvanced)

	e, err := svc.Open(ctx, doc.Meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	note := board.Object{ID: "n1", Type: board.StickyNote, Width: 100, Height: 80, Text: "release checklist"}
	if ok, err := e.ApplyEvent(board.NewObjectCreated(doc.Meta.ID, note)); !ok || err != nil {
		t.Fatalf("ApplyEvent = %v, %v", ok, err)
	}
	if pub.count() != 1 {
		t.Errorf("published = %d", pub.count())
	}
	logged, err := svc.Events(ctx, doc.Meta.ID, 0, 0)
	if err != nil || len(logged) != 1 || logged[0].Type != string(board.ObjectCreated) {
		t.Fatalf("Events = %+v, %v", logged, err)
	}

	// Closing flushes the pending save, which re-indexes the board.
	svc.Close()
	hits, err := svc.Search(ctx, "checklist", 10)
	if err != nil || len(hits) != 1 || hits[0].BoardID != doc.Meta.ID {
		t.Errorf("Search = %+v, %v", hits, err)
	}
	reopened, err := svc.Board(ctx, doc.Meta.ID)
	if err != nil || len(reopened.Objects) != 1 {
		t.Errorf("reloaded = %+v, %v", reopened.Objects, err)
	}
}

func TestRemoteEventsAreLoggedOnce(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	doc, _ := svc.CreateBoard(ctx, "", "")

	ev := board.NewObjectCreated(doc.Meta.ID, board.Object{ID: "r", Type: board.Rectangle, Width: 5, Height: 5})
	for range 2 {
		if _, err := svc.ApplyRemoteEvent(ctx, doc.Meta.ID, ev); err != nil {
			t.Fatal(err)
		}
	}
	logged, _ := svc.Events(ctx, doc.Meta.ID, 0, 0)
	if len(logged) != 1 {
		t.Errorf("logged = %d", len(logged))
	}
	if pub.count() != 1 {
		t.Errorf("published = %d", pub.count())
	}
}

func TestSharedClipboardAcrossBoards(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	a, _ := svc.CreateBoard(ctx, "A", "")
	b, _ := svc.CreateBoard(ctx, "B", "")

	ea, _ := svc.Open(ctx, a.Meta.ID)
	eb, _ := svc.Open(ctx, b.Meta.ID)
	_, _ = ea.ApplyEvent(board.NewObjectCreated(a.Meta.ID, board.Object{ID: "r", Type: board.Rectangle, Width: 10, Height: 10}))
	_, _ = ea.ApplyEvent(board.NewSelectionChanged(a.Meta.ID, []string{"r"}))
	if !ea.CopySelectionToClipboard() {
		t.Fatal("copy failed")
	}
	ids, err := eb.PasteFromClipboard(nil)
	if err != nil || len(ids) != 1 {
		t.Fatalf("paste = %v, %v", ids, err)
	}
	if got := eb.State(); len(got.Objects) != 1 {
		t.Errorf("board B objects = %+v", got.Objects)
	}
}

func TestDeleteBoard(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	doc, _ := svc.CreateBoard(ctx, "Gone", "")
	if _, err := svc.Open(ctx, doc.Meta.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteBoard(ctx, doc.Meta.ID); err != nil {
		t.Fatalf("DeleteBoard: %v", err)
	}
	if svc.OpenCount() != 0 {
		t.Error("engine not dropped")
	}
	if _, total, _ := svc.ListBoards(ctx, 10, 0, ""); total != 0 {
		t.Errorf("total = %d", total)
	}
	if err := svc.DeleteBoard(ctx, doc.Meta.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete = %v", err)
	}
}

func TestExport(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	doc, _ := svc.CreateBoard(ctx, "Pic", "")

	var buf bytes.Buffer
	if err := svc.Export(ctx, doc.Meta.ID, FormatPNG, &buf, export.DefaultOptions()); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("empty export = %v", err)
	}

	e, _ := svc.Open(ctx, doc.Meta.ID)
	_, _ = e.ApplyEvent(board.NewObjectCreated(doc.Meta.ID, board.Object{ID: "r", Type: board.Rectangle, Width: 40, Height: 20}))
	for _, format := range []string{FormatPNG, FormatPDF} {
		buf.Reset()
		if err := svc.Export(ctx, doc.Meta.ID, format, &buf, export.DefaultOptions()); err != nil {
			t.Errorf("%s: %v", format, err)
		}
		if buf.Len() == 0 {
			t.Errorf("%s: empty output", format)
		}
	}
	if err := svc.Export(ctx, doc.Meta.ID, "svg", &buf, export.DefaultOptions()); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("svg = %v", err)
	}
}
