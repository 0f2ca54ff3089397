package shapes

import (
	"math"

	"github.com/fogleman/gg"
	"github.com/samber/lo"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
)

func freehandBounds(o board.Object, _ Env) (geom.Bounds, bool) {
	if b, ok := geom.BoundsOfPoints(o.Points); ok {
		return b, true
	}
	return geom.Bounds{X: o.X, Y: o.Y}, true
}

// remapPoints scales pts from one bounds into another. A dimension that is
// (or becomes) zero collapses onto the target's centre line.
func remapPoints(pts []geom.Point, from, to geom.Bounds) []geom.Point {
	out := make([]geom.Point, len(pts))
	c := to.Center()
	for i, p := range pts {
		x, y := c.X, c.Y
		if from.Width > 0 && to.Width > 0 {
			x = to.X + (p.X-from.X)/from.Width*to.Width
		}
		if from.Height > 0 && to.Height > 0 {
			y = to.Y + (p.Y-from.Y)/from.Height*to.Height
		}
		out[i] = geom.Point{X: x, Y: y}
	}
	return out
}

func freehandShape() Capabilities {
	return Capabilities{
		Draw: func(dc *gg.Context, o board.Object, _ Env) {
			if len(o.Points) == 0 {
				return
			}
			stroke := o.StrokeColor
			if !paintable(stroke) {
				stroke = defaultStroke
			}
			dc.SetHexColor(stroke)
			dc.SetLineWidth(math.Max(o.StrokeWidth, 1))
			dc.SetLineCapRound()
			dc.SetLineJoinRound()
			dc.MoveTo(o.Points[0].X, o.Points[0].Y)
			for _, p := range o.Points[1:] {
				dc.LineTo(p.X, p.Y)
			}
			dc.Stroke()
		},
		BoundingBox: freehandBounds,
		HitTest: func(o board.Object, p geom.Point, env Env) bool {
			tol := math.Max(o.StrokeWidth/2, env.Tolerance())
			return geom.DistanceToPolyline(p, o.Points) <= tol
		},
		Translate: func(o board.Object, dx, dy float64) (board.Patch, bool) {
			pts := lo.Map(o.Points, func(p geom.Point, _ int) geom.Point { return p.Add(dx, dy) })
			return board.Patch{X: lo.ToPtr(o.X + dx), Y: lo.ToPtr(o.Y + dy), Points: pts}, true
		},
		Resize: func(o board.Object, b geom.Bounds) (board.Patch, bool) {
			from, _ := freehandBounds(o, Env{})
			return board.Patch{
				X:      lo.ToPtr(b.X),
				Y:      lo.ToPtr(b.Y),
				Points: remapPoints(o.Points, from, b),
			}, true
		},
		Editable: []board.Field{board.FieldStrokeColor, board.FieldStrokeWidth},
		Draft:    freehandDraft(),
	}
}
