package shapes

import (
	"math"
	"testing"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
)

func TestResolveEdgeTClamps(t *testing.T) {
	r := box("r", board.Rectangle, 0, 0, 100, 50)
	tests := []struct {
		edge board.Edge
		t    float64
		want geom.Point
	}{
		{board.EdgeTop, -0.5, geom.Point{X: 0, Y: 0}},
		{board.EdgeTop, 1.5, geom.Point{X: 100, Y: 0}},
		{board.EdgeRight, 0.5, geom.Point{X: 100, Y: 25}},
		{board.EdgeBottom, 0.25, geom.Point{X: 25, Y: 50}},
		{board.EdgeLeft, 7, geom.Point{X: 0, Y: 50}},
	}
	for _, tt := range tests {
		got := ResolveAttachmentPoint(r, board.EdgeAttachment(tt.edge, tt.t), Env{})
		if !nearPoint(got, tt.want) {
			t.Errorf("%s t=%v: got %v, want %v", tt.edge, tt.t, got, tt.want)
		}
	}
}

func TestResolvePerimeterAngle(t *testing.T) {
	e := box("e", board.Ellipse, 0, 0, 80, 40)
	c := geom.Point{X: 40, Y: 20}

	got := ResolveAttachmentPoint(e, board.AngleAttachment(0), Env{})
	if !nearPoint(got, geom.Point{X: c.X + 40, Y: c.Y}) {
		t.Errorf("angle 0: got %v, want centre + (rx, 0)", got)
	}
	got = ResolveAttachmentPoint(e, board.AngleAttachment(math.Pi/2), Env{})
	if !nearPoint(got, geom.Point{X: c.X, Y: c.Y + 20}) {
		t.Errorf("angle pi/2: got %v", got)
	}
}

func TestResolvePortAndFallback(t *testing.T) {
	r := box("r", board.Rectangle, 0, 0, 100, 50)
	if got := ResolveAttachmentPoint(r, board.PortAttachment(PortBottom), Env{}); got != (geom.Point{X: 50, Y: 50}) {
		t.Errorf("bottom port = %v", got)
	}
	if got := ResolveAttachmentPoint(r, board.PortAttachment("nope"), Env{}); got != (geom.Point{X: 50, Y: 25}) {
		t.Errorf("unknown port should resolve to centre, got %v", got)
	}
	if got := ResolveAttachmentPoint(r, board.FallbackAttachment(board.AnchorLeft), Env{}); got != (geom.Point{X: 0, Y: 25}) {
		t.Errorf("left anchor = %v", got)
	}
}

func TestPickAttachment(t *testing.T) {
	r := box("r", board.Rectangle, 0, 0, 100, 50)
	v := geom.DefaultViewport()

	if got := PickAttachment(r, geom.Point{X: 92, Y: 27}, v, nil, Env{}); got != board.PortAttachment(PortRight) {
		t.Errorf("near right port: %+v", got)
	}

	got := PickAttachment(r, geom.Point{X: 20, Y: 1}, v, nil, Env{})
	if got.Kind != board.AttachEdgeT || got.Edge != board.EdgeTop || math.Abs(got.T-0.2) > 1e-9 {
		t.Errorf("top edge pick: %+v", got)
	}

	// Zoomed out, the port snap radius grows in world units.
	if got := PickAttachment(r, geom.Point{X: 80, Y: 25}, geom.Viewport{Zoom: 0.5}, nil, Env{}); got != board.PortAttachment(PortRight) {
		t.Errorf("zoomed-out snap: %+v", got)
	}

	e := box("e", board.Ellipse, 0, 0, 100, 100)
	got = PickAttachment(e, geom.Point{X: 50, Y: 95}, v, nil, Env{})
	if got.Kind != board.AttachPerimeterAngle && got.Kind != board.AttachPort {
		t.Fatalf("ellipse pick: %+v", got)
	}
	got = PickAttachment(e, geom.Point{X: 80, Y: 80}, v, nil, Env{})
	if got.Kind != board.AttachPerimeterAngle || math.Abs(got.AngleRad-math.Pi/4) > 1e-9 {
		t.Errorf("ellipse angle: %+v", got)
	}
}

func TestPickAttachmentFacesOtherEndInsideShape(t *testing.T) {
	r := box("r", board.Rectangle, 0, 0, 100, 50)
	v := geom.DefaultViewport()
	other := geom.Point{X: -200, Y: 25}

	got := PickAttachment(r, geom.Point{X: 70, Y: 10}, v, &other, Env{})
	if got.Kind != board.AttachEdgeT || got.Edge != board.EdgeLeft || math.Abs(got.T-0.2) > 1e-9 {
		t.Errorf("inside with other end: %+v", got)
	}
	if got := PickAttachment(r, geom.Point{X: 70, Y: 10}, v, nil, Env{}); got.Edge != board.EdgeTop {
		t.Errorf("inside without other end: %+v", got)
	}

	// Outside the shape the pointer alone decides.
	got = PickAttachment(r, geom.Point{X: 130, Y: 10}, v, &other, Env{})
	if got.Kind != board.AttachEdgeT || got.Edge != board.EdgeRight || math.Abs(got.T-0.2) > 1e-9 {
		t.Errorf("outside: %+v", got)
	}

	e := box("e", board.Ellipse, 0, 0, 100, 100)
	got = PickAttachment(e, geom.Point{X: 70, Y: 30}, v, &geom.Point{X: 50, Y: 300}, Env{})
	if got.Kind != board.AttachPerimeterAngle || math.Abs(got.AngleRad-math.Pi/2) > 1e-9 {
		t.Errorf("ellipse facing other end: %+v", got)
	}
}

func TestResolveConnectorEndpoints(t *testing.T) {
	a := box("a", board.Rectangle, 0, 0, 10, 10)
	b := box("b", board.Rectangle, 100, 0, 10, 10)
	line := board.Object{ID: "l", Type: board.Line, X2: 5}
	conn := board.Object{
		ID: "c", Type: board.Connector,
		From: &board.Endpoint{ObjectID: "a", Attachment: board.PortAttachment(PortRight)},
		To:   &board.Endpoint{ObjectID: "b", Attachment: board.PortAttachment(PortLeft)},
	}

	p1, p2, ok := ResolveConnectorEndpoints([]board.Object{a, b, conn}, conn)
	if !ok || p1 != (geom.Point{X: 10, Y: 5}) || p2 != (geom.Point{X: 100, Y: 5}) {
		t.Errorf("resolved %v %v %v", p1, p2, ok)
	}

	if _, _, ok := ResolveConnectorEndpoints([]board.Object{a, conn}, conn); ok {
		t.Error("missing target should not resolve")
	}

	toLine := conn.Clone()
	toLine.To.ObjectID = "l"
	if _, _, ok := ResolveConnectorEndpoints([]board.Object{a, line, toLine}, toLine); ok {
		t.Error("non-connectable target should not resolve")
	}

	env := Env{Objects: []board.Object{a, conn}}
	if _, ok := BoundingBox(conn, env); ok {
		t.Error("dangling connector should have no bounds")
	}
	if HitTest(conn, geom.Point{X: 10, Y: 5}, env) {
		t.Error("dangling connector should not be hittable")
	}
}
