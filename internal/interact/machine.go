// Package interact turns pointer input into drafts, transient drag patches
// and committed board events. Machine is a plain value: every transition
// returns the next machine together with its effects, so callers decide
// when and how those effects reach the document.
package interact

import (
	"slices"

	"github.com/samber/lo"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
	"github.com/erland/pwa-whiteboard-sub000/internal/idgen"
	"github.com/erland/pwa-whiteboard-sub000/internal/shapes"
)

// EndpointHotspotPx is the view-space radius of line and connector endpoint grips.
const EndpointHotspotPx = 10

// Tool is the active toolbar tool: ToolSelect or a shape type.
type Tool string

const ToolSelect Tool = "select"

// ShapeTool returns the creation tool for t.
func ShapeTool(t board.ShapeType) Tool { return Tool(t) }

// Phase is the top-level machine state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseDrafting Phase = "drafting"
	PhaseDragging Phase = "dragging"
)

// DragKind says what a drag manipulates.
type DragKind string

const (
	DragMove              DragKind = "move"
	DragPan               DragKind = "pan"
	DragResize            DragKind = "resize"
	DragLineEndpoint      DragKind = "lineEndpoint"
	DragConnectorEndpoint DragKind = "connectorEndpoint"
)

// Side picks one end of a line or connector. For connectors the start is
// the from endpoint.
type Side string

const (
	SideStart Side = "start"
	SideEnd   Side = "end"
)

// Drag is the snapshot taken when a drag starts. All patches are computed
// from it, never from the live object.
type Drag struct {
	Kind           DragKind      `json:"kind"`
	ObjectID       string        `json:"objectId,omitempty"`
	Original       board.Object  `json:"original"`
	OriginalBounds geom.Bounds   `json:"originalBounds"`
	Handle         geom.Handle   `json:"handle,omitempty"`
	Side           Side          `json:"side,omitempty"`
	StartWorld     geom.Point    `json:"startWorld"`
	StartCanvas    geom.Point    `json:"startCanvas"`
	StartViewport  geom.Viewport `json:"startViewport"`
}

// Machine is the interaction state.
type Machine struct {
	Phase Phase         `json:"phase"`
	Draft *shapes.Draft `json:"draft,omitempty"`
	Drag  *Drag         `json:"drag,omitempty"`
}

// New returns an idle machine.
func New() Machine {
	return Machine{Phase: PhaseIdle}
}

// Input is the read-only context of one pointer event.
type Input struct {
	BoardID     string
	Tool        Tool
	Style       board.Style
	Objects     []board.Object
	SelectedIDs []string
	Viewport    geom.Viewport
	NewID       idgen.Generator
}

func (in Input) env() shapes.Env {
	return shapes.Env{Objects: in.Objects, Zoom: in.Viewport.Zoom}
}

func (in Input) draftContext() shapes.DraftContext {
	return shapes.DraftContext{Style: in.Style, Objects: in.Objects, Viewport: in.Viewport, NewID: in.NewID}
}

// TransientPatch is a render-only change to one object.
type TransientPatch struct {
	ObjectID string      `json:"objectId"`
	Patch    board.Patch `json:"patch"`
}

// Output lists the effects of a transition.
type Output struct {
	Transient []TransientPatch `json:"transient,omitempty"`
	Events    []board.Event    `json:"events,omitempty"`
	Viewport  *geom.Viewport   `json:"viewport,omitempty"`
	Preview   *board.Object    `json:"preview,omitempty"`
}

func (o *Output) commit(ev board.Event) {
	o.Events = append(o.Events, ev)
}

func (o *Output) transient(id string, p board.Patch) {
	o.Transient = append(o.Transient, TransientPatch{ObjectID: id, Patch: p})
}

// PointerDown starts a gesture at canvas point c.
func (m Machine) PointerDown(in Input, c geom.Point) (Machine, Output) {
	if m.Phase != PhaseIdle {
		return m, Output{}
	}
	world := geom.ToWorld(c, in.Viewport)
	if in.Tool != ToolSelect && in.Tool != "" {
		return m.startDraft(in, world)
	}
	return m.startSelect(in, c, world)
}

func (m Machine) startDraft(in Input, world geom.Point) (Machine, Output) {
	st := board.ShapeType(in.Tool)
	if !shapes.Registered(st) {
		return m, Output{}
	}
	lc := shapes.Lookup(st).Draft
	if lc == nil {
		return m, Output{}
	}
	res := lc.Start(in.draftContext(), world)
	var out Output
	switch res.Kind {
	case shapes.StartDrafting:
		d := res.Draft
		preview := d.Preview
		out.Preview = &preview
		return Machine{Phase: PhaseDrafting, Draft: &d}, out
	case shapes.StartCreated:
		out.commit(board.NewObjectCreated(in.BoardID, res.Object))
		out.commit(board.NewSelectionChanged(in.BoardID, []string{res.Object.ID}))
	}
	return New(), out
}

func (m Machine) startSelect(in Input, c, world geom.Point) (Machine, Output) {
	var out Output
	env := in.env()

	if len(in.SelectedIDs) == 1 {
		if obj, ok := board.Find(in.Objects, in.SelectedIDs[0]); ok && shapes.Resizable(obj.Type) {
			if b, ok := shapes.BoundingBox(obj, env); ok {
				if h, hit := geom.HitHandle(b, in.Viewport, c); hit {
					return m.dragging(in, Drag{Kind: DragResize, ObjectID: obj.ID, Original: obj, OriginalBounds: b, Handle: h}, c, world), out
				}
			}
		}
	}

	obj, hit := shapes.TopmostAt(in.Objects, world, env, nil)
	if !hit {
		if len(in.SelectedIDs) > 0 {
			out.commit(board.NewSelectionChanged(in.BoardID, nil))
		}
		return m.dragging(in, Drag{Kind: DragPan}, c, world), out
	}

	if !slices.Contains(in.SelectedIDs, obj.ID) {
		out.commit(board.NewSelectionChanged(in.BoardID, []string{obj.ID}))
	}

	switch obj.Type {
	case board.Line:
		a := geom.Point{X: obj.X, Y: obj.Y}
		b := geom.Point{X: obj.X2, Y: obj.Y2}
		if side, ok := endpointHit(in.Viewport, c, a, b); ok {
			return m.dragging(in, Drag{Kind: DragLineEndpoint, ObjectID: obj.ID, Original: obj, Side: side}, c, world), out
		}
	case board.Connector:
		if a, b, ok := shapes.ResolveConnectorEndpoints(in.Objects, obj); ok {
			if side, ok := endpointHit(in.Viewport, c, a, b); ok {
				return m.dragging(in, Drag{Kind: DragConnectorEndpoint, ObjectID: obj.ID, Original: obj, Side: side}, c, world), out
			}
		}
		// Selected, but a connector body cannot be dragged.
		return New(), out
	}

	if _, ok := shapes.Translate(obj, 0, 0); !ok {
		return New(), out
	}
	return m.dragging(in, Drag{Kind: DragMove, ObjectID: obj.ID, Original: obj}, c, world), out
}

// endpointHit tests the canvas-space grips around world points a and b.
func endpointHit(v geom.Viewport, c, a, b geom.Point) (Side, bool) {
	da := geom.Distance(c, geom.ToCanvas(a, v))
	db := geom.Distance(c, geom.ToCanvas(b, v))
	switch {
	case da <= EndpointHotspotPx && da <= db:
		return SideStart, true
	case db <= EndpointHotspotPx:
		return SideEnd, true
	}
	return "", false
}

func (m Machine) dragging(in Input, d Drag, c, world geom.Point) Machine {
	d.StartCanvas = c
	d.StartWorld = world
	d.StartViewport = in.Viewport
	return Machine{Phase: PhaseDragging, Drag: &d}
}

// PointerMove updates the active draft or drag.
func (m Machine) PointerMove(in Input, c geom.Point) (Machine, Output) {
	var out Output
	switch m.Phase {
	case PhaseDrafting:
		lc := shapes.Lookup(m.Draft.Tool).Draft
		d := lc.Update(in.draftContext(), *m.Draft, geom.ToWorld(c, in.Viewport))
		preview := d.Preview
		out.Preview = &preview
		return Machine{Phase: PhaseDrafting, Draft: &d}, out
	case PhaseDragging:
		if m.Drag.Kind == DragPan {
			v := panViewport(*m.Drag, c)
			out.Viewport = &v
			return m, out
		}
		if p, ok := dragPatch(in, *m.Drag, c); ok {
			out.transient(m.Drag.ObjectID, p)
		}
	}
	return m, out
}

// PointerUp finishes the active gesture.
func (m Machine) PointerUp(in Input, c geom.Point) (Machine, Output) {
	var out Output
	switch m.Phase {
	case PhaseDrafting:
		ctx := in.draftContext()
		lc := shapes.Lookup(m.Draft.Tool).Draft
		d := lc.Update(ctx, *m.Draft, geom.ToWorld(c, in.Viewport))
		if obj, ok := lc.Finish(ctx, d); ok {
			out.commit(board.NewObjectCreated(in.BoardID, obj))
			out.commit(board.NewSelectionChanged(in.BoardID, []string{obj.ID}))
		}
	case PhaseDragging:
		d := *m.Drag
		if d.Kind == DragPan {
			v := panViewport(d, c)
			out.Viewport = &v
			break
		}
		p, ok := dragPatch(in, d, c)
		if !ok {
			break
		}
		out.transient(d.ObjectID, p)
		if final := p.Minimize(d.Original); !final.IsEmpty() {
			out.commit(board.NewObjectUpdated(in.BoardID, d.ObjectID, final))
		}
	}
	return New(), out
}

// PointerLeave ends the gesture when the pointer leaves the canvas. Drafts
// that opt in are cancelled; everything else finishes as on pointer up.
func (m Machine) PointerLeave(in Input, c geom.Point) (Machine, Output) {
	if m.Phase == PhaseDrafting {
		if lc := shapes.Lookup(m.Draft.Tool).Draft; lc.CancelOnLeave {
			return New(), Output{}
		}
	}
	return m.PointerUp(in, c)
}

// Cancel drops any gesture without committing it.
func (m Machine) Cancel() Machine {
	return New()
}

func panViewport(d Drag, c geom.Point) geom.Viewport {
	v := d.StartViewport
	v.OffsetX += (c.X - d.StartCanvas.X) / v.Zoom
	v.OffsetY += (c.Y - d.StartCanvas.Y) / v.Zoom
	return v
}

// dragPatch computes the absolute patch for d with the pointer at c.
func dragPatch(in Input, d Drag, c geom.Point) (board.Patch, bool) {
	world := geom.ToWorld(c, d.StartViewport)
	dx, dy := world.X-d.StartWorld.X, world.Y-d.StartWorld.Y

	switch d.Kind {
	case DragMove:
		return shapes.Translate(d.Original, dx, dy)
	case DragResize:
		return shapes.Resize(d.Original, geom.ResizeBounds(d.OriginalBounds, d.Handle, dx, dy))
	case DragLineEndpoint:
		if d.Side == SideStart {
			return board.Patch{X: lo.ToPtr(world.X), Y: lo.ToPtr(world.Y)}, true
		}
		return board.Patch{X2: lo.ToPtr(world.X), Y2: lo.ToPtr(world.Y)}, true
	case DragConnectorEndpoint:
		return connectorEndpointPatch(in, d, world)
	}
	return board.Patch{}, false
}

// connectorEndpointPatch retargets the dragged end to the connectable shape
// under the pointer. Off any shape the end stays on its original target and
// only the attachment follows the pointer.
func connectorEndpointPatch(in Input, d Drag, world geom.Point) (board.Patch, bool) {
	conn := d.Original
	if conn.From == nil || conn.To == nil {
		return board.Patch{}, false
	}
	moving, fixed := conn.From, conn.To
	if d.Side == SideEnd {
		moving, fixed = conn.To, conn.From
	}

	env := in.env()
	var other *geom.Point
	if fixedTarget, ok := board.Find(in.Objects, fixed.ObjectID); ok && shapes.Connectable(fixedTarget.Type) {
		p := shapes.ResolveAttachmentPoint(fixedTarget, fixed.Attachment, env)
		other = &p
	}

	target, ok := shapes.TopmostAt(in.Objects, world, env, func(o board.Object) bool {
		return shapes.Connectable(o.Type) && o.ID != conn.ID && o.ID != fixed.ObjectID
	})
	if !ok {
		target, ok = board.Find(in.Objects, moving.ObjectID)
		if !ok || !shapes.Connectable(target.Type) {
			return board.Patch{}, false
		}
	}

	ep := board.Endpoint{
		ObjectID:   target.ID,
		Attachment: shapes.PickAttachment(target, world, in.Viewport, other, env),
	}
	if d.Side == SideStart {
		return board.Patch{From: &ep}, true
	}
	return board.Patch{To: &ep}, true
}
