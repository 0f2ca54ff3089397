package shapes

import (
	"math"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
)

// PortSnapPx is the view-space radius within which a port captures the pointer.
const PortSnapPx = 12

// ResolveAttachmentPoint returns the world point a connector end attached
// to o with a sits on.
func ResolveAttachmentPoint(o board.Object, a board.Attachment, env Env) geom.Point {
	b, ok := BoundingBox(o, env)
	if !ok {
		return geom.Point{X: o.X, Y: o.Y}
	}
	c := b.Center()

	switch a.Kind {
	case board.AttachPort:
		for _, p := range Ports(o) {
			if p.ID == a.PortID {
				return p.Point
			}
		}
		return c
	case board.AttachEdgeT:
		t := geom.Clamp(a.T, 0, 1)
		tl := geom.Point{X: b.X, Y: b.Y}
		tr := geom.Point{X: b.Right(), Y: b.Y}
		bl := geom.Point{X: b.X, Y: b.Bottom()}
		br := geom.Point{X: b.Right(), Y: b.Bottom()}
		switch a.Edge {
		case board.EdgeTop:
			return geom.Lerp(tl, tr, t)
		case board.EdgeRight:
			return geom.Lerp(tr, br, t)
		case board.EdgeBottom:
			return geom.Lerp(bl, br, t)
		case board.EdgeLeft:
			return geom.Lerp(tl, bl, t)
		}
		return c
	case board.AttachPerimeterAngle:
		return geom.Point{
			X: c.X + math.Cos(a.AngleRad)*b.Width/2,
			Y: c.Y + math.Sin(a.AngleRad)*b.Height/2,
		}
	case board.AttachFallback:
		return anchorPoint(b, a.Anchor)
	}
	return c
}

func anchorPoint(b geom.Bounds, a board.Anchor) geom.Point {
	c := b.Center()
	switch a {
	case board.AnchorTop:
		return geom.Point{X: c.X, Y: b.Y}
	case board.AnchorRight:
		return geom.Point{X: b.Right(), Y: c.Y}
	case board.AnchorBottom:
		return geom.Point{X: c.X, Y: b.Bottom()}
	case board.AnchorLeft:
		return geom.Point{X: b.X, Y: c.Y}
	}
	return c
}

// PickAttachment chooses the attachment for a connector end dropped at
// pointer over o. The nearest port inside the snap radius wins; otherwise
// ellipses get a perimeter angle and boxes an edge parameter. other is the
// opposite connector end: while the pointer is inside o it picks the side
// facing that end, and the pointer only slides the point along the edge.
func PickAttachment(o board.Object, pointer geom.Point, v geom.Viewport, other *geom.Point, env Env) board.Attachment {
	b, ok := BoundingBox(o, env)
	if !ok {
		return board.FallbackAttachment(board.AnchorCenter)
	}

	snap := geom.PixelsToWorld(PortSnapPx, v)
	bestDist := math.Inf(1)
	bestPort := ""
	for _, p := range Ports(o) {
		if d := geom.Distance(pointer, p.Point); d <= snap && d < bestDist {
			bestDist, bestPort = d, p.ID
		}
	}
	if bestPort != "" {
		return board.PortAttachment(bestPort)
	}

	c := b.Center()
	ref := pointer
	if other != nil && *other != c && b.Contains(pointer) {
		ref = *other
	}
	if Lookup(o.Type).Outline == OutlineEllipse {
		return board.AngleAttachment(math.Atan2(ref.Y-c.Y, ref.X-c.X))
	}
	return pickEdge(b, ref, pointer)
}

// pickEdge classifies the edge by ref and places t by the projection of at.
func pickEdge(b geom.Bounds, ref, at geom.Point) board.Attachment {
	hw, hh := b.Width/2, b.Height/2
	if hw <= 0 || hh <= 0 {
		return board.FallbackAttachment(board.AnchorCenter)
	}
	c := b.Center()
	dx, dy := ref.X-c.X, ref.Y-c.Y
	if math.Abs(dx)/hw >= math.Abs(dy)/hh {
		t := geom.Clamp((at.Y-b.Y)/b.Height, 0, 1)
		if dx >= 0 {
			return board.EdgeAttachment(board.EdgeRight, t)
		}
		return board.EdgeAttachment(board.EdgeLeft, t)
	}
	t := geom.Clamp((at.X-b.X)/b.Width, 0, 1)
	if dy >= 0 {
		return board.EdgeAttachment(board.EdgeBottom, t)
	}
	return board.EdgeAttachment(board.EdgeTop, t)
}

// ResolveConnectorEndpoints returns the world positions of both ends of
// conn. It reports false when either target is missing or cannot take
// connectors; such connectors are simply not drawn.
func ResolveConnectorEndpoints(objs []board.Object, conn board.Object) (geom.Point, geom.Point, bool) {
	if conn.From == nil || conn.To == nil {
		return geom.Point{}, geom.Point{}, false
	}
	env := Env{Objects: objs}
	a, ok := resolveEndpoint(objs, *conn.From, env)
	if !ok {
		return geom.Point{}, geom.Point{}, false
	}
	b, ok := resolveEndpoint(objs, *conn.To, env)
	if !ok {
		return geom.Point{}, geom.Point{}, false
	}
	return a, b, true
}

func resolveEndpoint(objs []board.Object, ep board.Endpoint, env Env) (geom.Point, bool) {
	target, ok := board.Find(objs, ep.ObjectID)
	if !ok || !Connectable(target.Type) {
		return geom.Point{}, false
	}
	return ResolveAttachmentPoint(target, ep.Attachment, env), true
}
