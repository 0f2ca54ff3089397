package geom

import "math"

// Handle identifies one of the eight resize handles around a selection.
type Handle string

const (
	HandleNW Handle = "nw"
	HandleN  Handle = "n"
	HandleNE Handle = "ne"
	HandleE  Handle = "e"
	HandleSE Handle = "se"
	HandleS  Handle = "s"
	HandleSW Handle = "sw"
	HandleW  Handle = "w"
)

// HandleSizePx is the side of a resize handle square in view pixels.
const HandleSizePx = 10

// Handles lists the resize handles in hit-test order.
var Handles = []Handle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}

// HandlePosition returns the world-space centre of handle h on b.
func HandlePosition(b Bounds, h Handle) Point {
	c := b.Center()
	switch h {
	case HandleNW:
		return Point{X: b.X, Y: b.Y}
	case HandleN:
		return Point{X: c.X, Y: b.Y}
	case HandleNE:
		return Point{X: b.Right(), Y: b.Y}
	case HandleE:
		return Point{X: b.Right(), Y: c.Y}
	case HandleSE:
		return Point{X: b.Right(), Y: b.Bottom()}
	case HandleS:
		return Point{X: c.X, Y: b.Bottom()}
	case HandleSW:
		return Point{X: b.X, Y: b.Bottom()}
	case HandleW:
		return Point{X: b.X, Y: c.Y}
	}
	return c
}

// HitHandle returns the handle whose view-space square contains the canvas
// point c. Handle squares keep a constant pixel size regardless of zoom.
func HitHandle(b Bounds, v Viewport, c Point) (Handle, bool) {
	half := float64(HandleSizePx) / 2
	for _, h := range Handles {
		hc := ToCanvas(HandlePosition(b, h), v)
		if math.Abs(c.X-hc.X) <= half && math.Abs(c.Y-hc.Y) <= half {
			return h, true
		}
	}
	return "", false
}

// ResizeBounds moves the edges controlled by h by (dx, dy) in world units.
// Dragging past the opposite edge flips the rectangle instead of producing
// a negative size.
func ResizeBounds(orig Bounds, h Handle, dx, dy float64) Bounds {
	left, top := orig.X, orig.Y
	right, bottom := orig.Right(), orig.Bottom()
	switch h {
	case HandleNW:
		left += dx
		top += dy
	case HandleN:
		top += dy
	case HandleNE:
		right += dx
		top += dy
	case HandleE:
		right += dx
	case HandleSE:
		right += dx
		bottom += dy
	case HandleS:
		bottom += dy
	case HandleSW:
		left += dx
		bottom += dy
	case HandleW:
		left += dx
	}
	return BoundsFromCorners(Point{X: left, Y: top}, Point{X: right, Y: bottom})
}
