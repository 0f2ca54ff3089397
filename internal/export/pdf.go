package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
	"github.com/erland/pwa-whiteboard-sub000/internal/shapes"
)

const (
	pdfStroke     = "#1f2937"
	pdfText       = "#111827"
	pdfStickyFill = "#fef08a"
	pdfFontSize   = 16
	pdfPadding    = 6
)

// PDF writes the board as a single-page vector PDF sized to its content,
// one world unit per point.
func PDF(w io.Writer, doc board.Document, opts Options) error {
	opts = opts.normalized()
	b, ok := ContentBounds(doc.Objects)
	if !ok {
		return ErrEmptyBoard
	}
	b = b.Inflate(opts.Padding)
	if _, _, err := pixelSize(b, 1); err != nil {
		return err
	}

	p := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: math.Max(b.Width, 1), Ht: math.Max(b.Height, 1)},
	})
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.SetTitle(doc.Meta.Name, true)
	p.AddPage()

	if r, g, bl, ok := parseHex(opts.Background); ok {
		p.SetFillColor(r, g, bl)
		p.Rect(0, 0, b.Width, b.Height, "F")
	}

	tr := p.UnicodeTranslatorFromDescriptor("")
	pen := pdfPen{pdf: p, origin: geom.Point{X: b.X, Y: b.Y}, tr: tr}
	for _, o := range doc.Objects {
		if !shapes.Registered(o.Type) {
			continue
		}
		pen.draw(o, doc.Objects)
	}

	if err := p.Output(w); err != nil {
		return fmt.Errorf("export: write pdf: %w", err)
	}
	return nil
}

type pdfPen struct {
	pdf    *gofpdf.Fpdf
	origin geom.Point
	tr     func(string) string
}

func (pp pdfPen) pt(p geom.Point) (float64, float64) {
	return p.X - pp.origin.X, p.Y - pp.origin.Y
}

// style sets stroke and fill and returns the gofpdf style string.
func (pp pdfPen) style(o board.Object, fallbackFill string) string {
	st := ""
	stroke := o.StrokeColor
	if stroke == "" {
		stroke = pdfStroke
	}
	if r, g, b, ok := parseHex(stroke); ok {
		pp.pdf.SetDrawColor(r, g, b)
		pp.pdf.SetLineWidth(math.Max(o.StrokeWidth, 1))
		st = "D"
	}
	fill := o.FillColor
	if _, _, _, ok := parseHex(fill); !ok {
		fill = fallbackFill
	}
	if r, g, b, ok := parseHex(fill); ok {
		pp.pdf.SetFillColor(r, g, b)
		st = "F" + st
	}
	return st
}

func (pp pdfPen) draw(o board.Object, all []board.Object) {
	switch o.Type {
	case board.Rectangle, board.RoundedRect:
		if st := pp.style(o, ""); st != "" {
			x, y := pp.pt(geom.Point{X: o.X, Y: o.Y})
			pp.pdf.Rect(x, y, o.Width, o.Height, st)
		}
	case board.Ellipse:
		if st := pp.style(o, ""); st != "" {
			cx, cy := pp.pt(geom.Point{X: o.X + o.Width/2, Y: o.Y + o.Height/2})
			pp.pdf.Ellipse(cx, cy, o.Width/2, o.Height/2, 0, st)
		}
	case board.Diamond:
		if st := pp.style(o, ""); st != "" {
			var pts []gofpdf.PointType
			for _, p := range []geom.Point{
				{X: o.X + o.Width/2, Y: o.Y},
				{X: o.X + o.Width, Y: o.Y + o.Height/2},
				{X: o.X + o.Width/2, Y: o.Y + o.Height},
				{X: o.X, Y: o.Y + o.Height/2},
			} {
				x, y := pp.pt(p)
				pts = append(pts, gofpdf.PointType{X: x, Y: y})
			}
			pp.pdf.Polygon(pts, st)
		}
	case board.StickyNote:
		sticky := o
		sticky.StrokeColor = "transparent"
		if st := pp.style(sticky, pdfStickyFill); st != "" {
			x, y := pp.pt(geom.Point{X: o.X, Y: o.Y})
			pp.pdf.Rect(x, y, o.Width, o.Height, st)
		}
		pp.label(o)
	case board.Text:
		pp.label(o)
	case board.Freehand:
		pp.polyline(o, o.Points)
	case board.Line:
		pp.segment(o, geom.Point{X: o.X, Y: o.Y}, geom.Point{X: o.X2, Y: o.Y2})
	case board.Connector:
		if a, b, ok := shapes.ResolveConnectorEndpoints(all, o); ok {
			pp.segment(o, a, b)
		}
	}
}

func (pp pdfPen) strokeOnly(o board.Object) bool {
	stroke := o.StrokeColor
	if stroke == "" {
		stroke = pdfStroke
	}
	r, g, b, ok := parseHex(stroke)
	if !ok {
		return false
	}
	pp.pdf.SetDrawColor(r, g, b)
	pp.pdf.SetFillColor(r, g, b)
	pp.pdf.SetLineWidth(math.Max(o.StrokeWidth, 1))
	pp.pdf.SetLineCapStyle("round")
	return true
}

func (pp pdfPen) polyline(o board.Object, pts []geom.Point) {
	if len(pts) < 2 || !pp.strokeOnly(o) {
		return
	}
	for i := 1; i < len(pts); i++ {
		x1, y1 := pp.pt(pts[i-1])
		x2, y2 := pp.pt(pts[i])
		pp.pdf.Line(x1, y1, x2, y2)
	}
}

func (pp pdfPen) segment(o board.Object, a, b geom.Point) {
	if !pp.strokeOnly(o) {
		return
	}
	x1, y1 := pp.pt(a)
	x2, y2 := pp.pt(b)
	pp.pdf.Line(x1, y1, x2, y2)
	width := math.Max(o.StrokeWidth, 1)
	if o.ArrowEnd == board.ArrowHead {
		pp.arrowhead(a, b, width)
	}
	if o.ArrowStart == board.ArrowHead {
		pp.arrowhead(b, a, width)
	}
}

func (pp pdfPen) arrowhead(tail, tip geom.Point, width float64) {
	size := math.Max(8, width*3)
	angle := math.Atan2(tip.Y-tail.Y, tip.X-tail.X)
	spread := math.Pi / 7
	var pts []gofpdf.PointType
	for _, p := range []geom.Point{
		tip,
		{X: tip.X - size*math.Cos(angle-spread), Y: tip.Y - size*math.Sin(angle-spread)},
		{X: tip.X - size*math.Cos(angle+spread), Y: tip.Y - size*math.Sin(angle+spread)},
	} {
		x, y := pp.pt(p)
		pts = append(pts, gofpdf.PointType{X: x, Y: y})
	}
	pp.pdf.Polygon(pts, "F")
}

func (pp pdfPen) label(o board.Object) {
	if strings.TrimSpace(o.Text) == "" {
		return
	}
	size := o.FontSize
	if size <= 0 {
		size = pdfFontSize
	}
	color := o.TextColor
	if _, _, _, ok := parseHex(color); !ok {
		color = pdfText
	}
	r, g, b, _ := parseHex(color)
	pp.pdf.SetTextColor(r, g, b)
	pp.pdf.SetFont("Helvetica", "", size)
	x, y := pp.pt(geom.Point{X: o.X + pdfPadding, Y: o.Y + pdfPadding})
	pp.pdf.SetXY(x, y)
	pp.pdf.MultiCell(math.Max(o.Width-2*pdfPadding, 1), size*1.3, pp.tr(o.Text), "", "L", false)
}

// parseHex reads #rgb and #rrggbb colours.
func parseHex(s string) (int, int, int, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}
