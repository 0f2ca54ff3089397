package interact

import (
	"reflect"
	"testing"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
	"github.com/erland/pwa-whiteboard-sub000/internal/idgen"
	"github.com/erland/pwa-whiteboard-sub000/internal/shapes"
)

func rect(id string, x, y, w, h float64) board.Object {
	return board.Object{ID: id, Type: board.Rectangle, X: x, Y: y, Width: w, Height: h}
}

func selectInput(objs []board.Object, selected []string, v geom.Viewport) Input {
	return Input{
		BoardID:     "b1",
		Tool:        ToolSelect,
		Style:       board.DefaultStyle(),
		Objects:     objs,
		SelectedIDs: selected,
		Viewport:    v,
		NewID:       idgen.Sequence("n"),
	}
}

func eventsOfType(out Output, t board.EventType) []board.Event {
	var evs []board.Event
	for _, ev := range out.Events {
		if ev.Type == t {
			evs = append(evs, ev)
		}
	}
	return evs
}

func TestMoveDragCommitsOneMinimizedPatch(t *testing.T) {
	orig := rect("r", 10, 10, 20, 20)
	in := selectInput([]board.Object{orig}, nil, geom.Viewport{Zoom: 2})

	m, out := New().PointerDown(in, geom.Point{X: 40, Y: 40})
	if m.Phase != PhaseDragging || m.Drag.Kind != DragMove {
		t.Fatalf("machine = %+v", m)
	}
	if sel := eventsOfType(out, board.SelectionChanged); len(sel) != 1 || sel[0].SelectedIDs[0] != "r" {
		t.Errorf("pointer down should select r: %+v", out.Events)
	}

	m, out = m.PointerMove(in, geom.Point{X: 50, Y: 50})
	if len(out.Transient) != 1 || len(out.Events) != 0 {
		t.Fatalf("move output = %+v", out)
	}

	m, out = m.PointerUp(in, geom.Point{X: 60, Y: 80})
	if m.Phase != PhaseIdle {
		t.Errorf("phase = %s", m.Phase)
	}
	updates := eventsOfType(out, board.ObjectUpdated)
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updates))
	}
	final := updates[0].Patch.Apply(orig)
	if final.X != 20 || final.Y != 30 {
		t.Errorf("final position = (%v, %v), want (20, 30)", final.X, final.Y)
	}
	rendered := out.Transient[len(out.Transient)-1].Patch.Apply(orig)
	if !reflect.DeepEqual(final, rendered) {
		t.Errorf("committed %+v differs from rendered %+v", final, rendered)
	}
	if f := updates[0].Patch.Fields(); len(f) != 2 {
		t.Errorf("patch fields = %v", f)
	}
}

func TestMoveBackToStartCommitsNothing(t *testing.T) {
	in := selectInput([]board.Object{rect("r", 0, 0, 50, 50)}, []string{"r"}, geom.DefaultViewport())
	m, out := New().PointerDown(in, geom.Point{X: 25, Y: 25})
	if len(out.Events) != 0 {
		t.Errorf("already selected object should not re-select: %+v", out.Events)
	}
	m, _ = m.PointerMove(in, geom.Point{X: 80, Y: 80})
	_, out = m.PointerUp(in, geom.Point{X: 25, Y: 25})
	if len(out.Events) != 0 {
		t.Errorf("events = %+v", out.Events)
	}
}

func TestPanOnEmptyCanvas(t *testing.T) {
	in := selectInput([]board.Object{rect("r", 0, 0, 10, 10)}, []string{"r"}, geom.Viewport{OffsetX: 5, Zoom: 2})

	m, out := New().PointerDown(in, geom.Point{X: 100, Y: 100})
	if m.Drag == nil || m.Drag.Kind != DragPan {
		t.Fatalf("machine = %+v", m)
	}
	if sel := eventsOfType(out, board.SelectionChanged); len(sel) != 1 || len(sel[0].SelectedIDs) != 0 {
		t.Errorf("pan should clear selection: %+v", out.Events)
	}

	_, out = m.PointerMove(in, geom.Point{X: 140, Y: 120})
	if out.Viewport == nil || *out.Viewport != (geom.Viewport{OffsetX: 25, OffsetY: 10, Zoom: 2}) {
		t.Errorf("viewport = %+v", out.Viewport)
	}
}

func TestResizeFromHandle(t *testing.T) {
	in := selectInput([]board.Object{rect("r", 0, 0, 100, 100)}, []string{"r"}, geom.DefaultViewport())

	m, _ := New().PointerDown(in, geom.Point{X: 100, Y: 100})
	if m.Drag == nil || m.Drag.Kind != DragResize || m.Drag.Handle != geom.HandleSE {
		t.Fatalf("machine = %+v", m)
	}
	_, out := m.PointerUp(in, geom.Point{X: 150, Y: 120})
	updates := eventsOfType(out, board.ObjectUpdated)
	if len(updates) != 1 {
		t.Fatalf("updates = %+v", out.Events)
	}
	p := updates[0].Patch
	if p.X != nil || p.Y != nil || *p.Width != 150 || *p.Height != 120 {
		t.Errorf("patch = %+v", p)
	}
}

func TestDraftRectangle(t *testing.T) {
	in := selectInput(nil, nil, geom.DefaultViewport())
	in.Tool = ShapeTool(board.Rectangle)

	m, out := New().PointerDown(in, geom.Point{X: 10, Y: 10})
	if m.Phase != PhaseDrafting || out.Preview == nil {
		t.Fatalf("machine = %+v", m)
	}
	m, out = m.PointerMove(in, geom.Point{X: 50, Y: 40})
	if out.Preview.Width != 40 {
		t.Errorf("preview = %+v", out.Preview)
	}
	_, out = m.PointerUp(in, geom.Point{X: 50, Y: 40})
	created := eventsOfType(out, board.ObjectCreated)
	if len(created) != 1 || created[0].Object.Width != 40 || created[0].Object.Height != 30 {
		t.Fatalf("created = %+v", created)
	}
	sel := eventsOfType(out, board.SelectionChanged)
	if len(sel) != 1 || sel[0].SelectedIDs[0] != created[0].Object.ID {
		t.Errorf("new object should be selected: %+v", sel)
	}
}

func TestZeroLengthDraftIsDiscarded(t *testing.T) {
	in := selectInput(nil, nil, geom.DefaultViewport())
	in.Tool = ShapeTool(board.Line)
	m, _ := New().PointerDown(in, geom.Point{X: 10, Y: 10})
	_, out := m.PointerUp(in, geom.Point{X: 10, Y: 10})
	if len(out.Events) != 0 {
		t.Errorf("events = %+v", out.Events)
	}
}

func TestClickToCreateText(t *testing.T) {
	in := selectInput(nil, nil, geom.DefaultViewport())
	in.Tool = ShapeTool(board.Text)
	m, out := New().PointerDown(in, geom.Point{X: 10, Y: 10})
	if m.Phase != PhaseIdle {
		t.Errorf("phase = %s", m.Phase)
	}
	if created := eventsOfType(out, board.ObjectCreated); len(created) != 1 || created[0].Object.Type != board.Text {
		t.Errorf("events = %+v", out.Events)
	}
}

func TestConnectorDraftCancelledOnLeave(t *testing.T) {
	objs := []board.Object{rect("a", 0, 0, 50, 50), rect("b", 200, 0, 50, 50)}
	in := selectInput(objs, nil, geom.DefaultViewport())
	in.Tool = ShapeTool(board.Connector)

	m, _ := New().PointerDown(in, geom.Point{X: 25, Y: 25})
	if m.Phase != PhaseDrafting {
		t.Fatalf("phase = %s", m.Phase)
	}
	m, _ = m.PointerMove(in, geom.Point{X: 225, Y: 25})
	m, out := m.PointerLeave(in, geom.Point{X: 225, Y: 25})
	if m.Phase != PhaseIdle || len(out.Events) != 0 {
		t.Errorf("leave should cancel connector draft: %+v %+v", m, out)
	}
}

func TestFreehandDraftCommitsOnLeave(t *testing.T) {
	in := selectInput(nil, nil, geom.DefaultViewport())
	in.Tool = ShapeTool(board.Freehand)
	m, _ := New().PointerDown(in, geom.Point{X: 0, Y: 0})
	m, _ = m.PointerMove(in, geom.Point{X: 5, Y: 5})
	_, out := m.PointerLeave(in, geom.Point{X: 10, Y: 3})
	if created := eventsOfType(out, board.ObjectCreated); len(created) != 1 || len(created[0].Object.Points) != 3 {
		t.Errorf("events = %+v", out.Events)
	}
}

func TestLineEndpointDrag(t *testing.T) {
	line := board.Object{ID: "l", Type: board.Line, X: 0, Y: 0, X2: 100, Y2: 0}
	in := selectInput([]board.Object{line}, []string{"l"}, geom.DefaultViewport())

	m, _ := New().PointerDown(in, geom.Point{X: 98, Y: 1})
	if m.Drag == nil || m.Drag.Kind != DragLineEndpoint || m.Drag.Side != SideEnd {
		t.Fatalf("machine = %+v", m)
	}
	_, out := m.PointerUp(in, geom.Point{X: 120, Y: 40})
	u := eventsOfType(out, board.ObjectUpdated)
	if len(u) != 1 || *u[0].Patch.X2 != 120 || *u[0].Patch.Y2 != 40 || u[0].Patch.X != nil {
		t.Errorf("update = %+v", u)
	}
}

func connectorFixture() []board.Object {
	return []board.Object{
		rect("a", 0, 0, 50, 50),
		rect("b", 200, 0, 50, 50),
		rect("c", 200, 200, 50, 50),
		{
			ID: "k", Type: board.Connector,
			From: &board.Endpoint{ObjectID: "a", Attachment: board.PortAttachment(shapes.PortRight)},
			To:   &board.Endpoint{ObjectID: "b", Attachment: board.PortAttachment(shapes.PortLeft)},
		},
	}
}

func TestConnectorBodySelectsWithoutDrag(t *testing.T) {
	in := selectInput(connectorFixture(), nil, geom.DefaultViewport())
	m, out := New().PointerDown(in, geom.Point{X: 125, Y: 25})
	if m.Phase != PhaseIdle {
		t.Errorf("phase = %s", m.Phase)
	}
	if sel := eventsOfType(out, board.SelectionChanged); len(sel) != 1 || sel[0].SelectedIDs[0] != "k" {
		t.Errorf("events = %+v", out.Events)
	}
}

func TestConnectorEndpointRetarget(t *testing.T) {
	in := selectInput(connectorFixture(), []string{"k"}, geom.DefaultViewport())

	// Grab the "to" end sitting on b's left port at (200, 25).
	m, _ := New().PointerDown(in, geom.Point{X: 195, Y: 25})
	if m.Drag == nil || m.Drag.Kind != DragConnectorEndpoint || m.Drag.Side != SideEnd {
		t.Fatalf("machine = %+v", m)
	}

	// Empty canvas: still attached to b, attachment follows the pointer.
	_, out := m.PointerMove(in, geom.Point{X: 150, Y: 140})
	if len(out.Transient) != 1 || out.Transient[0].Patch.To.ObjectID != "b" {
		t.Fatalf("transient = %+v", out.Transient)
	}

	_, out = m.PointerUp(in, geom.Point{X: 225, Y: 201})
	u := eventsOfType(out, board.ObjectUpdated)
	if len(u) != 1 || u[0].Patch.To == nil || u[0].Patch.To.ObjectID != "c" {
		t.Fatalf("update = %+v", u)
	}
	if u[0].Patch.From != nil {
		t.Error("fixed end should not be in the patch")
	}
	if u[0].Patch.To.Attachment != board.PortAttachment(shapes.PortTop) {
		t.Errorf("attachment = %+v", u[0].Patch.To.Attachment)
	}
}
