package clipboard

import (
	"errors"
	"testing"
	"time"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
	"github.com/erland/pwa-whiteboard-sub000/internal/idgen"
	"github.com/erland/pwa-whiteboard-sub000/internal/shapes"
)

func rect(id string, x, y float64) board.Object {
	return board.Object{ID: id, Type: board.Rectangle, X: x, Y: y, Width: 10, Height: 10}
}

func connector(id, from, to string) board.Object {
	return board.Object{
		ID: id, Type: board.Connector,
		From: &board.Endpoint{ObjectID: from, Attachment: board.PortAttachment(shapes.PortRight)},
		To:   &board.Endpoint{ObjectID: to, Attachment: board.PortAttachment(shapes.PortLeft)},
	}
}

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestFromSelectionEmpty(t *testing.T) {
	if snap := FromSelection([]board.Object{rect("a", 0, 0)}, nil, "b1", now); snap != nil {
		t.Errorf("snapshot = %+v, want nil", snap)
	}
}

func TestFromSelectionIsDeepCopy(t *testing.T) {
	objs := []board.Object{{ID: "f", Type: board.Freehand, Points: []geom.Point{{X: 1, Y: 1}, {X: 3, Y: 4}}}}
	snap := FromSelection(objs, []string{"f"}, "b1", now)
	objs[0].Points[0].X = 100
	if snap.Objects[0].Points[0].X != 1 {
		t.Error("snapshot shares point storage with the board")
	}
	if snap.Bounds != (geom.Bounds{X: 1, Y: 1, Width: 2, Height: 3}) {
		t.Errorf("bounds = %+v", snap.Bounds)
	}
}

func TestSameBoardPasteSteps(t *testing.T) {
	snap := FromSelection([]board.Object{rect("a", 0, 0)}, []string{"a"}, "b1", now)
	opts := PasteOptions{TargetBoardID: "b1", Viewport: geom.DefaultViewport(), NewID: idgen.Sequence("p")}

	first, err := Paste(*snap, opts)
	if err != nil {
		t.Fatal(err)
	}
	if o := first.Objects[0]; o.X != 20 || o.Y != 20 || o.ID != "p1" {
		t.Errorf("first paste = %+v", o)
	}
	if first.Snapshot.PasteCount != 1 {
		t.Errorf("paste count = %d", first.Snapshot.PasteCount)
	}

	second, err := Paste(first.Snapshot, opts)
	if err != nil {
		t.Fatal(err)
	}
	if o := second.Objects[0]; o.X != 40 || o.Y != 40 {
		t.Errorf("second paste = (%v, %v), want (40, 40)", o.X, o.Y)
	}
}

func TestSameBoardOffsetScalesWithZoom(t *testing.T) {
	snap := FromSelection([]board.Object{rect("a", 0, 0)}, []string{"a"}, "b1", now)
	res, _ := Paste(*snap, PasteOptions{TargetBoardID: "b1", Viewport: geom.Viewport{Zoom: 2}})
	if o := res.Objects[0]; o.X != 10 {
		t.Errorf("x = %v, want 10", o.X)
	}
}

func TestCrossBoardPasteCentres(t *testing.T) {
	snap := FromSelection([]board.Object{rect("a", 0, 0)}, []string{"a"}, "src", now)
	res, err := Paste(*snap, PasteOptions{
		TargetBoardID: "dst",
		Viewport:      geom.DefaultViewport(),
		CanvasSize:    &geom.Size{Width: 100, Height: 100},
	})
	if err != nil {
		t.Fatal(err)
	}
	if o := res.Objects[0]; o.X != 45 || o.Y != 45 {
		t.Errorf("pasted at (%v, %v), want (45, 45)", o.X, o.Y)
	}
	if res.Snapshot.PasteCount != 0 {
		t.Error("cross-board paste should not advance the paste count")
	}

	res, _ = Paste(*snap, PasteOptions{TargetBoardID: "dst", Viewport: geom.DefaultViewport()})
	if o := res.Objects[0]; o.X != 0 || o.Y != 0 {
		t.Errorf("without canvas size the paste should not move: (%v, %v)", o.X, o.Y)
	}
}

func TestConnectorRemap(t *testing.T) {
	objs := []board.Object{rect("A", 0, 0), rect("B", 50, 0), connector("C", "A", "B")}
	snap := FromSelection(objs, []string{"A", "B", "C"}, "src", now)

	res, err := Paste(*snap, PasteOptions{TargetBoardID: "dst", NewID: idgen.Sequence("n")})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Objects) != 3 {
		t.Fatalf("objects = %d", len(res.Objects))
	}
	c := res.Objects[2]
	if c.From.ObjectID != res.Objects[0].ID || c.To.ObjectID != res.Objects[1].ID {
		t.Errorf("connector endpoints %s -> %s not remapped to %s -> %s",
			c.From.ObjectID, c.To.ObjectID, res.Objects[0].ID, res.Objects[1].ID)
	}
	if _, _, ok := shapes.ResolveConnectorEndpoints(res.Objects, c); !ok {
		t.Error("pasted connector should resolve against the pasted objects")
	}
	if snap.Objects[2].From.ObjectID != "A" {
		t.Error("paste mutated the snapshot")
	}
}

func TestCrossBoardConnectorOnlyPasteIsEmpty(t *testing.T) {
	objs := []board.Object{rect("A", 0, 0), rect("B", 50, 0), connector("C", "A", "B")}
	snap := FromSelection(objs, []string{"C"}, "src", now)
	if snap == nil {
		t.Fatal("connector selection should snapshot")
	}
	res, err := Paste(*snap, PasteOptions{TargetBoardID: "dst"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Objects) != 0 {
		t.Errorf("objects = %+v, want none", res.Objects)
	}
}

func TestSameBoardConnectorKeepsUncopiedReference(t *testing.T) {
	objs := []board.Object{rect("A", 0, 0), rect("B", 50, 0), connector("C", "A", "B")}
	snap := FromSelection(objs, []string{"A", "C"}, "b1", now)
	res, err := Paste(*snap, PasteOptions{TargetBoardID: "b1", NewID: idgen.Sequence("n")})
	if err != nil {
		t.Fatal(err)
	}
	c := res.Objects[1]
	if c.From.ObjectID != res.Objects[0].ID || c.To.ObjectID != "B" {
		t.Errorf("connector = %s -> %s", c.From.ObjectID, c.To.ObjectID)
	}
}

func TestIDExhaustion(t *testing.T) {
	snap := FromSelection([]board.Object{rect("a", 0, 0)}, []string{"a"}, "b1", now)
	_, err := Paste(*snap, PasteOptions{
		TargetBoardID: "b1",
		ExistingIDs:   map[string]struct{}{"dup": {}},
		NewID:         func() string { return "dup" },
	})
	if !errors.Is(err, ErrIDSpaceExhausted) {
		t.Errorf("err = %v", err)
	}
}

func TestHolderTracksPasteCount(t *testing.T) {
	var h Holder
	if _, ok, _ := h.Paste(PasteOptions{}); ok {
		t.Fatal("empty clipboard should report !ok")
	}
	h.Set(FromSelection([]board.Object{rect("a", 0, 0)}, []string{"a"}, "b1", now))

	for want := 20.0; want <= 60; want += 20 {
		res, ok, err := h.Paste(PasteOptions{TargetBoardID: "b1"})
		if !ok || err != nil {
			t.Fatalf("paste: ok=%v err=%v", ok, err)
		}
		if res.Objects[0].X != want {
			t.Errorf("x = %v, want %v", res.Objects[0].X, want)
		}
	}
	if s, _ := h.Get(); s.PasteCount != 3 {
		t.Errorf("paste count = %d", s.PasteCount)
	}
}
