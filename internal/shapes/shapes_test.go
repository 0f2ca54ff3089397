package shapes

import (
	"math"
	"slices"
	"testing"

	"github.com/fogleman/gg"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
	"github.com/erland/pwa-whiteboard-sub000/internal/idgen"
)

func box(id string, t board.ShapeType, x, y, w, h float64) board.Object {
	return board.Object{ID: id, Type: t, X: x, Y: y, Width: w, Height: h}
}

func nearPoint(a, b geom.Point) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestEveryShapeTypeIsRegistered(t *testing.T) {
	for _, st := range board.ShapeTypes {
		caps := Lookup(st)
		if caps.BoundingBox == nil || caps.Draw == nil {
			t.Errorf("%s: missing required capability", st)
		}
		if caps.Draft == nil {
			t.Errorf("%s: no draft lifecycle", st)
		}
	}
}

func TestLookupUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown shape type")
		}
	}()
	Lookup("hexagon")
}

func TestBoxPorts(t *testing.T) {
	ports := Ports(box("r", board.Rectangle, 0, 0, 100, 50))
	ids := make([]string, len(ports))
	for i, p := range ports {
		ids[i] = p.ID
	}
	if !slices.Equal(ids, []string{PortCenter, PortTop, PortRight, PortBottom, PortLeft}) {
		t.Errorf("port ids = %v", ids)
	}
	if ports[2].Point != (geom.Point{X: 100, Y: 25}) {
		t.Errorf("right port = %v", ports[2].Point)
	}

	degenerate := Ports(box("r", board.Rectangle, 10, 10, 0, 40))
	if len(degenerate) != 1 || degenerate[0].ID != PortCenter {
		t.Errorf("degenerate ports = %v", degenerate)
	}
}

func TestHitTests(t *testing.T) {
	env := Env{Zoom: 1}
	ellipse := box("e", board.Ellipse, 0, 0, 100, 50)
	if !HitTest(ellipse, geom.Point{X: 50, Y: 25}, env) {
		t.Error("ellipse centre should hit")
	}
	if HitTest(ellipse, geom.Point{X: 2, Y: 2}, env) {
		t.Error("ellipse bbox corner should miss")
	}

	diamond := box("d", board.Diamond, 0, 0, 100, 100)
	if HitTest(diamond, geom.Point{X: 10, Y: 10}, env) {
		t.Error("diamond corner should miss")
	}
	if !HitTest(diamond, geom.Point{X: 50, Y: 10}, env) {
		t.Error("diamond top interior should hit")
	}

	line := board.Object{ID: "l", Type: board.Line, X: 0, Y: 0, X2: 100, Y2: 0, StrokeWidth: 2}
	if !HitTest(line, geom.Point{X: 50, Y: 5}, env) {
		t.Error("line within tolerance should hit")
	}
	if HitTest(line, geom.Point{X: 50, Y: 5}, Env{Zoom: 4}) {
		t.Error("tolerance should shrink when zoomed in")
	}
}

func TestFreehandResizeRemapsPoints(t *testing.T) {
	o := board.Object{ID: "f", Type: board.Freehand, Points: []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 20}, {X: 20, Y: 10}}}
	p, ok := Resize(o, geom.Bounds{X: 100, Y: 100, Width: 40, Height: 40})
	if !ok {
		t.Fatal("freehand should be resizable")
	}
	want := []geom.Point{{X: 100, Y: 100}, {X: 120, Y: 140}, {X: 140, Y: 120}}
	if !slices.Equal(p.Points, want) {
		t.Errorf("points = %v, want %v", p.Points, want)
	}
}

func TestFreehandResizeCollapsedDimension(t *testing.T) {
	vertical := board.Object{ID: "f", Type: board.Freehand, Points: []geom.Point{{X: 5, Y: 0}, {X: 5, Y: 10}}}
	p, _ := Resize(vertical, geom.Bounds{X: 0, Y: 0, Width: 30, Height: 20})
	for _, pt := range p.Points {
		if pt.X != 15 {
			t.Errorf("point %v not on centre line x=15", pt)
		}
	}
	if p.Points[1].Y != 20 {
		t.Errorf("vertical extent should still scale: %v", p.Points)
	}

	flat, _ := Resize(board.Object{ID: "g", Type: board.Freehand, Points: []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}},
		geom.Bounds{X: 0, Y: 0, Width: 10, Height: 0})
	for _, pt := range flat.Points {
		if pt.Y != 0 {
			t.Errorf("collapsed height should put points at y=0: %v", pt)
		}
	}
}

func TestConnectorCannotMoveOrResize(t *testing.T) {
	c := board.Object{ID: "c", Type: board.Connector}
	if _, ok := Translate(c, 1, 1); ok {
		t.Error("connector translate should opt out")
	}
	if Resizable(board.Connector) || Resizable(board.Line) {
		t.Error("connector and line are not resizable")
	}
}

func TestDrawEverythingDoesNotPanic(t *testing.T) {
	a := box("a", board.Rectangle, 10, 10, 50, 30)
	b := box("b", board.Ellipse, 100, 10, 50, 30)
	objs := []board.Object{
		a, b,
		box("c", board.Diamond, 10, 60, 40, 40),
		{ID: "d", Type: board.RoundedRect, X: 60, Y: 60, Width: 40, Height: 40, CornerRadius: 8},
		{ID: "e", Type: board.Text, X: 0, Y: 120, Width: 100, Height: 30, Text: "hello world"},
		{ID: "f", Type: board.StickyNote, X: 110, Y: 120, Width: 60, Height: 60, Text: "note"},
		{ID: "g", Type: board.Freehand, Points: []geom.Point{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 9, Y: 2}}},
		{ID: "h", Type: board.Line, X: 0, Y: 200, X2: 80, Y2: 200, ArrowEnd: board.ArrowHead},
		{ID: "i", Type: board.Connector, ArrowEnd: board.ArrowHead,
			From: &board.Endpoint{ObjectID: "a", Attachment: board.PortAttachment(PortRight)},
			To:   &board.Endpoint{ObjectID: "b", Attachment: board.AngleAttachment(math.Pi)}},
	}
	dc := gg.NewContext(240, 240)
	env := Env{Objects: objs}
	for _, o := range objs {
		Draw(dc, o, env)
	}
}

func TestCapsForSelection(t *testing.T) {
	rectObj := box("r", board.Rectangle, 0, 0, 1, 1)
	rounded := box("q", board.RoundedRect, 0, 0, 1, 1)

	caps := CapsForSelection([]board.Object{rectObj, rounded}, board.PolicyFor(board.BoardAdvanced))
	if !slices.Equal(caps.Editable, boxStyleFields) {
		t.Errorf("editable = %v", caps.Editable)
	}
	if caps.Resizable {
		t.Error("multi selection should not be resizable")
	}

	caps = CapsForSelection([]board.Object{rounded}, board.PolicyFor(board.BoardMindmap))
	if slices.Contains(caps.Editable, board.FieldCornerRadius) {
		t.Error("locked corner radius offered for editing")
	}
	if !caps.Resizable || !caps.Movable {
		t.Errorf("caps = %+v", caps)
	}
}

func TestBoxDragDraft(t *testing.T) {
	ctx := DraftContext{Style: board.DefaultStyle(), Viewport: geom.DefaultViewport(), NewID: idgen.Sequence("o")}
	lc := Lookup(board.Rectangle).Draft

	res := lc.Start(ctx, geom.Point{X: 50, Y: 50})
	if res.Kind != StartDrafting {
		t.Fatalf("kind = %v", res.Kind)
	}
	d := lc.Update(ctx, res.Draft, geom.Point{X: 10, Y: 80})
	o, ok := lc.Finish(ctx, d)
	if !ok {
		t.Fatal("expected object")
	}
	if o.ID != "o1" || o.X != 10 || o.Y != 50 || o.Width != 40 || o.Height != 30 {
		t.Errorf("object = %+v", o)
	}

	if _, ok := lc.Finish(ctx, res.Draft); ok {
		t.Error("zero-size drag should be discarded")
	}
}

func TestFreehandDraftNeedsTwoPoints(t *testing.T) {
	ctx := DraftContext{Style: board.DefaultStyle(), Viewport: geom.DefaultViewport()}
	lc := Lookup(board.Freehand).Draft
	res := lc.Start(ctx, geom.Point{X: 1, Y: 1})
	if _, ok := lc.Finish(ctx, res.Draft); ok {
		t.Error("single point stroke should be discarded")
	}
	d := lc.Update(ctx, res.Draft, geom.Point{X: 1, Y: 1})
	d = lc.Update(ctx, d, geom.Point{X: 4, Y: 6})
	o, ok := lc.Finish(ctx, d)
	if !ok || len(o.Points) != 2 || o.X != 1 || o.Y != 1 {
		t.Errorf("stroke = %+v, ok=%v", o, ok)
	}
}

func TestClickDraftCreatesImmediately(t *testing.T) {
	ctx := DraftContext{Style: board.DefaultStyle(), Viewport: geom.DefaultViewport(), NewID: idgen.Sequence("s")}
	res := Lookup(board.StickyNote).Draft.Start(ctx, geom.Point{X: 3, Y: 4})
	if res.Kind != StartCreated || res.Object.ID != "s1" || res.Object.Width != stickyDefaultDim {
		t.Errorf("result = %+v", res)
	}
}

func TestConnectorDraft(t *testing.T) {
	objs := []board.Object{
		box("a", board.Rectangle, 0, 0, 100, 100),
		box("b", board.Rectangle, 300, 0, 100, 100),
	}
	ctx := DraftContext{Style: board.DefaultStyle(), Objects: objs, Viewport: geom.DefaultViewport(), NewID: idgen.Sequence("c")}
	lc := Lookup(board.Connector).Draft

	if res := lc.Start(ctx, geom.Point{X: 200, Y: 50}); res.Kind != StartNoop {
		t.Fatalf("starting on empty canvas should be a no-op, got %v", res.Kind)
	}

	res := lc.Start(ctx, geom.Point{X: 99, Y: 50})
	if res.Kind != StartDrafting || res.Draft.From.ObjectID != "a" {
		t.Fatalf("start = %+v", res)
	}
	if res.Draft.From.Attachment != board.PortAttachment(PortRight) {
		t.Errorf("from attachment = %+v", res.Draft.From.Attachment)
	}

	// Ending on the source shape again yields nothing.
	if _, ok := lc.Finish(ctx, lc.Update(ctx, res.Draft, geom.Point{X: 40, Y: 40})); ok {
		t.Error("connector ending on its own source should be discarded")
	}

	o, ok := lc.Finish(ctx, lc.Update(ctx, res.Draft, geom.Point{X: 301, Y: 50}))
	if !ok {
		t.Fatal("expected connector")
	}
	if o.To.ObjectID != "b" || o.To.Attachment != board.PortAttachment(PortLeft) {
		t.Errorf("to = %+v", o.To)
	}
	if !resolves(append(objs, o), o) {
		t.Error("new connector should resolve")
	}
}

func resolves(objs []board.Object, c board.Object) bool {
	_, _, ok := ResolveConnectorEndpoints(objs, c)
	return ok
}
