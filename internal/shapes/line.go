package shapes

import (
	"math"

	"github.com/fogleman/gg"
	"github.com/samber/lo"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
)

var segmentFields = []board.Field{
	board.FieldStrokeColor, board.FieldStrokeWidth, board.FieldArrowStart, board.FieldArrowEnd,
}

func lineEnds(o board.Object) (geom.Point, geom.Point) {
	return geom.Point{X: o.X, Y: o.Y}, geom.Point{X: o.X2, Y: o.Y2}
}

func lineShape() Capabilities {
	return Capabilities{
		Draw: func(dc *gg.Context, o board.Object, _ Env) {
			a, b := lineEnds(o)
			drawSegment(dc, o, a, b)
		},
		BoundingBox: func(o board.Object, _ Env) (geom.Bounds, bool) {
			a, b := lineEnds(o)
			return geom.BoundsFromCorners(a, b), true
		},
		HitTest: func(o board.Object, p geom.Point, env Env) bool {
			a, b := lineEnds(o)
			return geom.DistanceToSegment(p, a, b) <= math.Max(o.StrokeWidth/2, env.Tolerance())
		},
		Translate: func(o board.Object, dx, dy float64) (board.Patch, bool) {
			return board.Patch{
				X:  lo.ToPtr(o.X + dx),
				Y:  lo.ToPtr(o.Y + dy),
				X2: lo.ToPtr(o.X2 + dx),
				Y2: lo.ToPtr(o.Y2 + dy),
			}, true
		},
		Editable: segmentFields,
		Draft:    lineDraft(),
	}
}

// connectorShape has no geometry of its own: both ends are resolved from
// the objects it attaches to, so it can be neither moved nor resized.
func connectorShape() Capabilities {
	return Capabilities{
		Draw: func(dc *gg.Context, o board.Object, env Env) {
			if a, b, ok := ResolveConnectorEndpoints(env.Objects, o); ok {
				drawSegment(dc, o, a, b)
			}
		},
		BoundingBox: func(o board.Object, env Env) (geom.Bounds, bool) {
			a, b, ok := ResolveConnectorEndpoints(env.Objects, o)
			if !ok {
				return geom.Bounds{}, false
			}
			return geom.BoundsFromCorners(a, b), true
		},
		HitTest: func(o board.Object, p geom.Point, env Env) bool {
			a, b, ok := ResolveConnectorEndpoints(env.Objects, o)
			if !ok {
				return false
			}
			return geom.DistanceToSegment(p, a, b) <= math.Max(o.StrokeWidth/2, env.Tolerance())
		},
		Editable: segmentFields,
		Draft:    connectorDraft(),
	}
}
