package shapes

import (
	"math"

	"github.com/fogleman/gg"
	"github.com/samber/lo"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
)

// Port ids shared by every box-like shape.
const (
	PortCenter = "center"
	PortTop    = "top"
	PortRight  = "right"
	PortBottom = "bottom"
	PortLeft   = "left"
)

const (
	stickyFill       = "#fef08a"
	defaultRadius    = 12
	textDefaultW     = 160
	textDefaultH     = 40
	stickyDefaultDim = 160
)

var boxStyleFields = []board.Field{board.FieldStrokeColor, board.FieldStrokeWidth, board.FieldFillColor}

func boxBounds(o board.Object, _ Env) (geom.Bounds, bool) {
	return geom.Bounds{X: o.X, Y: o.Y, Width: math.Max(o.Width, 0), Height: math.Max(o.Height, 0)}, true
}

// boxPorts returns the centre plus the four edge midpoints; a degenerate box
// only has its centre.
func boxPorts(o board.Object) []Port {
	b, _ := boxBounds(o, Env{})
	c := b.Center()
	if b.Width <= 0 || b.Height <= 0 {
		return []Port{{ID: PortCenter, Point: c}}
	}
	return []Port{
		{ID: PortCenter, Point: c},
		{ID: PortTop, Point: geom.Point{X: c.X, Y: b.Y}},
		{ID: PortRight, Point: geom.Point{X: b.Right(), Y: c.Y}},
		{ID: PortBottom, Point: geom.Point{X: c.X, Y: b.Bottom()}},
		{ID: PortLeft, Point: geom.Point{X: b.X, Y: c.Y}},
	}
}

func boxTranslate(o board.Object, dx, dy float64) (board.Patch, bool) {
	return board.Patch{X: lo.ToPtr(o.X + dx), Y: lo.ToPtr(o.Y + dy)}, true
}

func boxResize(_ board.Object, b geom.Bounds) (board.Patch, bool) {
	return board.Patch{
		X:      lo.ToPtr(b.X),
		Y:      lo.ToPtr(b.Y),
		Width:  lo.ToPtr(b.Width),
		Height: lo.ToPtr(b.Height),
	}, true
}

// boxShape assembles the capabilities shared by all box-like shapes.
func boxShape(tool board.ShapeType, path func(dc *gg.Context, b geom.Bounds, o board.Object), fallbackFill string, editable []board.Field) Capabilities {
	return Capabilities{
		Draw: func(dc *gg.Context, o board.Object, env Env) {
			b, _ := boxBounds(o, env)
			path(dc, b, o)
			fillAndStroke(dc, o, fallbackFill)
			drawLabel(dc, o, b, env)
		},
		BoundingBox: boxBounds,
		Ports:       boxPorts,
		Translate:   boxTranslate,
		Resize:      boxResize,
		Editable:    editable,
		Draft:       boxDragDraft(tool),
		Connectable: true,
		Outline:     OutlineBox,
	}
}

func rectangleShape() Capabilities {
	return boxShape(board.Rectangle, func(dc *gg.Context, b geom.Bounds, _ board.Object) {
		dc.DrawRectangle(b.X, b.Y, b.Width, b.Height)
	}, "", boxStyleFields)
}

func roundedRectShape() Capabilities {
	editable := append(append([]board.Field{}, boxStyleFields...), board.FieldCornerRadius)
	return boxShape(board.RoundedRect, func(dc *gg.Context, b geom.Bounds, o board.Object) {
		r := math.Min(o.CornerRadius, math.Min(b.Width, b.Height)/2)
		dc.DrawRoundedRectangle(b.X, b.Y, b.Width, b.Height, math.Max(r, 0))
	}, "", editable)
}

func ellipseShape() Capabilities {
	caps := boxShape(board.Ellipse, func(dc *gg.Context, b geom.Bounds, _ board.Object) {
		c := b.Center()
		dc.DrawEllipse(c.X, c.Y, b.Width/2, b.Height/2)
	}, "", boxStyleFields)
	caps.Outline = OutlineEllipse
	caps.HitTest = func(o board.Object, p geom.Point, env Env) bool {
		b, _ := boxBounds(o, env)
		rx, ry := b.Width/2, b.Height/2
		if rx <= 0 || ry <= 0 {
			return b.Inflate(env.Tolerance()).Contains(p)
		}
		c := b.Center()
		dx, dy := (p.X-c.X)/rx, (p.Y-c.Y)/ry
		return dx*dx+dy*dy <= 1
	}
	return caps
}

func diamondShape() Capabilities {
	caps := boxShape(board.Diamond, func(dc *gg.Context, b geom.Bounds, _ board.Object) {
		c := b.Center()
		dc.MoveTo(c.X, b.Y)
		dc.LineTo(b.Right(), c.Y)
		dc.LineTo(c.X, b.Bottom())
		dc.LineTo(b.X, c.Y)
		dc.ClosePath()
	}, "", boxStyleFields)
	caps.HitTest = func(o board.Object, p geom.Point, env Env) bool {
		b, _ := boxBounds(o, env)
		rx, ry := b.Width/2, b.Height/2
		if rx <= 0 || ry <= 0 {
			return b.Inflate(env.Tolerance()).Contains(p)
		}
		c := b.Center()
		return math.Abs(p.X-c.X)/rx+math.Abs(p.Y-c.Y)/ry <= 1
	}
	return caps
}

func textShape() Capabilities {
	caps := boxShape(board.Text, func(dc *gg.Context, _ geom.Bounds, _ board.Object) {}, "",
		[]board.Field{board.FieldText, board.FieldFontSize, board.FieldTextColor})
	// Text has no outline of its own.
	caps.Draw = func(dc *gg.Context, o board.Object, env Env) {
		b, _ := boxBounds(o, env)
		drawLabel(dc, o, b, env)
	}
	caps.Draft = clickDraft(func(ctx DraftContext, p geom.Point) board.Object {
		return board.Object{
			Type:      board.Text,
			X:         p.X,
			Y:         p.Y,
			Width:     textDefaultW,
			Height:    textDefaultH,
			Text:      "Text",
			FontSize:  ctx.Style.FontSize,
			TextColor: ctx.Style.TextColor,
		}
	})
	return caps
}

func stickyNoteShape() Capabilities {
	caps := boxShape(board.StickyNote, func(dc *gg.Context, b geom.Bounds, _ board.Object) {
		dc.DrawRectangle(b.X, b.Y, b.Width, b.Height)
	}, stickyFill, []board.Field{board.FieldText, board.FieldFontSize, board.FieldTextColor, board.FieldFillColor})
	caps.Draft = clickDraft(func(ctx DraftContext, p geom.Point) board.Object {
		return board.Object{
			Type:      board.StickyNote,
			X:         p.X,
			Y:         p.Y,
			Width:     stickyDefaultDim,
			Height:    stickyDefaultDim,
			FillColor: stickyFill,
			FontSize:  ctx.Style.FontSize,
			TextColor: ctx.Style.TextColor,
		}
	})
	return caps
}
