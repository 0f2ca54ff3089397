// Package shapes is the shape registry: one capability record per shape
// type covering drawing, bounds, hit-testing, ports, move/resize and the
// drafting lifecycle used when a tool creates a new object. The connector
// attachment resolver lives here as well since it is defined in terms of
// those capabilities.
package shapes

import (
	"fmt"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
)

// HitTolerancePx is the pick slop, in view pixels, for thin shapes.
const HitTolerancePx = 6

// Env is the context a capability may need beyond the object itself.
type Env struct {
	// Objects is the board content, used to resolve connector endpoints.
	Objects []board.Object
	// Zoom converts pixel tolerances to world units. Zero means 1.
	Zoom float64
	// FontFace, when set, supplies a face for text of the given size.
	FontFace func(size float64) font.Face
}

// Tolerance returns HitTolerancePx in world units.
func (e Env) Tolerance() float64 {
	if e.Zoom <= 0 {
		return HitTolerancePx
	}
	return HitTolerancePx / e.Zoom
}

// Port is a named connection point on a shape.
type Port struct {
	ID    string     `json:"id"`
	Point geom.Point `json:"point"`
}

// Outline tells the attachment picker which perimeter model to use.
type Outline int

const (
	OutlineBox Outline = iota
	OutlineEllipse
)

// Capabilities is the behaviour record of one shape type. Optional
// functions left nil mean the capability is absent.
type Capabilities struct {
	Draw        func(dc *gg.Context, o board.Object, env Env)
	BoundingBox func(o board.Object, env Env) (geom.Bounds, bool)
	// HitTest defaults to point-in-bounding-box.
	HitTest func(o board.Object, p geom.Point, env Env) bool
	Ports   func(o board.Object) []Port
	// Translate returns false when the shape cannot be moved directly.
	Translate func(o board.Object, dx, dy float64) (board.Patch, bool)
	Resize    func(o board.Object, b geom.Bounds) (board.Patch, bool)
	// Editable lists the fields the selection panel may change.
	Editable    []board.Field
	Draft       *DraftLifecycle
	Connectable bool
	Outline     Outline
}

var registry map[board.ShapeType]Capabilities

func init() {
	registry = map[board.ShapeType]Capabilities{
		board.Rectangle:   rectangleShape(),
		board.Ellipse:     ellipseShape(),
		board.Diamond:     diamondShape(),
		board.RoundedRect: roundedRectShape(),
		board.Text:        textShape(),
		board.StickyNote:  stickyNoteShape(),
		board.Freehand:    freehandShape(),
		board.Line:        lineShape(),
		board.Connector:   connectorShape(),
	}
}

// Lookup returns the capabilities of t. An unregistered type is a
// programming error and panics.
func Lookup(t board.ShapeType) Capabilities {
	caps, ok := registry[t]
	if !ok {
		panic(fmt.Sprintf("shapes: no capabilities registered for %q", t))
	}
	return caps
}

// Registered reports whether t has a capability record.
func Registered(t board.ShapeType) bool {
	_, ok := registry[t]
	return ok
}

// BoundingBox returns the world bounds of o, false when o has none
// (an unresolved connector).
func BoundingBox(o board.Object, env Env) (geom.Bounds, bool) {
	return Lookup(o.Type).BoundingBox(o, env)
}

// HitTest reports whether world point p picks o.
func HitTest(o board.Object, p geom.Point, env Env) bool {
	caps := Lookup(o.Type)
	if caps.HitTest != nil {
		return caps.HitTest(o, p, env)
	}
	b, ok := caps.BoundingBox(o, env)
	return ok && b.Contains(p)
}

// Ports returns the connection ports of o, nil if it has none.
func Ports(o board.Object) []Port {
	if fn := Lookup(o.Type).Ports; fn != nil {
		return fn(o)
	}
	return nil
}

// Translate returns the patch moving o by (dx, dy).
func Translate(o board.Object, dx, dy float64) (board.Patch, bool) {
	if fn := Lookup(o.Type).Translate; fn != nil {
		return fn(o, dx, dy)
	}
	return board.Patch{}, false
}

// Resize returns the patch fitting o into b.
func Resize(o board.Object, b geom.Bounds) (board.Patch, bool) {
	if fn := Lookup(o.Type).Resize; fn != nil {
		return fn(o, b)
	}
	return board.Patch{}, false
}

// Resizable reports whether objects of type t expose resize handles.
func Resizable(t board.ShapeType) bool {
	return Lookup(t).Resize != nil
}

// Connectable reports whether connectors may attach to objects of type t.
// Unknown types are not connectable.
func Connectable(t board.ShapeType) bool {
	caps, ok := registry[t]
	return ok && caps.Connectable
}

// Draw renders o onto dc.
func Draw(dc *gg.Context, o board.Object, env Env) {
	if fn := Lookup(o.Type).Draw; fn != nil {
		fn(dc, o, env)
	}
}

// TopmostAt returns the last object in z-order hit by p for which accept
// returns true. A nil accept takes any object.
func TopmostAt(objs []board.Object, p geom.Point, env Env, accept func(board.Object) bool) (board.Object, bool) {
	for i := len(objs) - 1; i >= 0; i-- {
		o := objs[i]
		if !Registered(o.Type) {
			continue
		}
		if accept != nil && !accept(o) {
			continue
		}
		if HitTest(o, p, env) {
			return o, true
		}
	}
	return board.Object{}, false
}
