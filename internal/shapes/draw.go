package shapes

import (
	"math"
	"strings"

	"github.com/fogleman/gg"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
)

const (
	defaultStroke    = "#1f2937"
	defaultTextColor = "#111827"
	defaultFontSize  = 16
	textPadding      = 6
)

func paintable(c string) bool {
	return strings.HasPrefix(c, "#") && len(c) > 1
}

// fillAndStroke paints the current path using o's style and clears it.
func fillAndStroke(dc *gg.Context, o board.Object, fallbackFill string) {
	fill := o.FillColor
	if !paintable(fill) {
		fill = fallbackFill
	}
	if paintable(fill) {
		dc.SetHexColor(fill)
		dc.FillPreserve()
	}
	stroke := o.StrokeColor
	if stroke == "" {
		stroke = defaultStroke
	}
	if paintable(stroke) {
		dc.SetHexColor(stroke)
		dc.SetLineWidth(math.Max(o.StrokeWidth, 1))
		dc.Stroke()
		return
	}
	dc.ClearPath()
}

// drawLabel writes o.Text wrapped inside b.
func drawLabel(dc *gg.Context, o board.Object, b geom.Bounds, env Env) {
	if o.Text == "" {
		return
	}
	size := o.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	if env.FontFace != nil {
		dc.SetFontFace(env.FontFace(size))
	}
	color := o.TextColor
	if !paintable(color) {
		color = defaultTextColor
	}
	dc.SetHexColor(color)
	width := math.Max(b.Width-2*textPadding, 1)
	dc.DrawStringWrapped(o.Text, b.X+textPadding, b.Y+textPadding, 0, 0, width, 1.3, gg.AlignLeft)
}

// drawSegment strokes a to b with optional arrowheads.
func drawSegment(dc *gg.Context, o board.Object, a, b geom.Point) {
	stroke := o.StrokeColor
	if !paintable(stroke) {
		stroke = defaultStroke
	}
	width := math.Max(o.StrokeWidth, 1)
	dc.SetHexColor(stroke)
	dc.SetLineWidth(width)
	dc.SetLineCapRound()
	dc.DrawLine(a.X, a.Y, b.X, b.Y)
	dc.Stroke()

	if o.ArrowEnd == board.ArrowHead {
		drawArrowhead(dc, a, b, width)
	}
	if o.ArrowStart == board.ArrowHead {
		drawArrowhead(dc, b, a, width)
	}
}

// drawArrowhead fills a triangle at tip pointing away from tail.
func drawArrowhead(dc *gg.Context, tail, tip geom.Point, width float64) {
	size := math.Max(8, width*3)
	angle := math.Atan2(tip.Y-tail.Y, tip.X-tail.X)
	spread := math.Pi / 7
	dc.MoveTo(tip.X, tip.Y)
	dc.LineTo(tip.X-size*math.Cos(angle-spread), tip.Y-size*math.Sin(angle-spread))
	dc.LineTo(tip.X-size*math.Cos(angle+spread), tip.Y-size*math.Sin(angle+spread))
	dc.ClosePath()
	dc.Fill()
}
