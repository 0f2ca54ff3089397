package shapes

import (
	"slices"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
	"github.com/erland/pwa-whiteboard-sub000/internal/idgen"
)

// DraftContext is what a tool sees while drafting a new object.
type DraftContext struct {
	Style    board.Style
	Objects  []board.Object
	Viewport geom.Viewport
	NewID    idgen.Generator
}

func (c DraftContext) env() Env {
	return Env{Objects: c.Objects, Zoom: c.Viewport.Zoom}
}

func (c DraftContext) newID() string {
	return idgen.Or(c.NewID)()
}

// Draft is an in-progress creation. Preview is render-only.
type Draft struct {
	Tool    board.ShapeType `json:"tool"`
	Start   geom.Point      `json:"start"`
	Current geom.Point      `json:"current"`
	Points  []geom.Point    `json:"points,omitempty"`
	From    *board.Endpoint `json:"from,omitempty"`
	Preview board.Object    `json:"preview"`
}

// StartKind is the outcome of pressing a creation tool on the canvas.
type StartKind int

const (
	StartNoop StartKind = iota
	StartDrafting
	StartCreated
)

// StartResult carries either a Draft or, for click-to-create tools, the
// finished Object.
type StartResult struct {
	Kind   StartKind
	Draft  Draft
	Object board.Object
}

// DraftLifecycle drives creation of one shape type.
type DraftLifecycle struct {
	Start  func(ctx DraftContext, p geom.Point) StartResult
	Update func(ctx DraftContext, d Draft, p geom.Point) Draft
	Finish func(ctx DraftContext, d Draft) (board.Object, bool)
	// CancelOnLeave discards the draft when the pointer leaves the canvas
	// instead of finishing it.
	CancelOnLeave bool
}

func styled(o board.Object, s board.Style) board.Object {
	o.StrokeColor = s.StrokeColor
	o.StrokeWidth = s.StrokeWidth
	return o
}

// boxDragDraft creates a box-like shape spanning the drag rectangle. A drag
// without extent in either direction creates nothing.
func boxDragDraft(tool board.ShapeType) *DraftLifecycle {
	preview := func(ctx DraftContext, start, cur geom.Point) board.Object {
		b := geom.BoundsFromCorners(start, cur)
		o := styled(board.Object{
			Type:      tool,
			X:         b.X,
			Y:         b.Y,
			Width:     b.Width,
			Height:    b.Height,
			FillColor: ctx.Style.FillColor,
		}, ctx.Style)
		if tool == board.RoundedRect {
			o.CornerRadius = defaultRadius
		}
		return o
	}
	return &DraftLifecycle{
		Start: func(ctx DraftContext, p geom.Point) StartResult {
			return StartResult{Kind: StartDrafting, Draft: Draft{
				Tool: tool, Start: p, Current: p, Preview: preview(ctx, p, p),
			}}
		},
		Update: func(ctx DraftContext, d Draft, p geom.Point) Draft {
			d.Current = p
			d.Preview = preview(ctx, d.Start, p)
			return d
		},
		Finish: func(ctx DraftContext, d Draft) (board.Object, bool) {
			o := preview(ctx, d.Start, d.Current)
			if o.Width == 0 || o.Height == 0 {
				return board.Object{}, false
			}
			o.ID = ctx.newID()
			return o, true
		},
	}
}

func lineDraft() *DraftLifecycle {
	preview := func(ctx DraftContext, start, cur geom.Point) board.Object {
		return styled(board.Object{
			Type: board.Line, X: start.X, Y: start.Y, X2: cur.X, Y2: cur.Y,
			ArrowStart: board.ArrowNone, ArrowEnd: board.ArrowNone,
		}, ctx.Style)
	}
	return &DraftLifecycle{
		Start: func(ctx DraftContext, p geom.Point) StartResult {
			return StartResult{Kind: StartDrafting, Draft: Draft{
				Tool: board.Line, Start: p, Current: p, Preview: preview(ctx, p, p),
			}}
		},
		Update: func(ctx DraftContext, d Draft, p geom.Point) Draft {
			d.Current = p
			d.Preview = preview(ctx, d.Start, p)
			return d
		},
		Finish: func(ctx DraftContext, d Draft) (board.Object, bool) {
			if d.Start == d.Current {
				return board.Object{}, false
			}
			o := preview(ctx, d.Start, d.Current)
			o.ID = ctx.newID()
			return o, true
		},
	}
}

func freehandDraft() *DraftLifecycle {
	preview := func(ctx DraftContext, pts []geom.Point) board.Object {
		b, _ := geom.BoundsOfPoints(pts)
		return styled(board.Object{Type: board.Freehand, X: b.X, Y: b.Y, Points: slices.Clone(pts)}, ctx.Style)
	}
	return &DraftLifecycle{
		Start: func(ctx DraftContext, p geom.Point) StartResult {
			pts := []geom.Point{p}
			return StartResult{Kind: StartDrafting, Draft: Draft{
				Tool: board.Freehand, Start: p, Current: p, Points: pts, Preview: preview(ctx, pts),
			}}
		},
		Update: func(ctx DraftContext, d Draft, p geom.Point) Draft {
			d.Current = p
			if n := len(d.Points); n == 0 || d.Points[n-1] != p {
				d.Points = append(slices.Clone(d.Points), p)
			}
			d.Preview = preview(ctx, d.Points)
			return d
		},
		Finish: func(ctx DraftContext, d Draft) (board.Object, bool) {
			if len(d.Points) < 2 {
				return board.Object{}, false
			}
			o := preview(ctx, d.Points)
			o.ID = ctx.newID()
			return o, true
		},
	}
}

// clickDraft creates the object immediately on pointer down.
func clickDraft(build func(ctx DraftContext, p geom.Point) board.Object) *DraftLifecycle {
	return &DraftLifecycle{
		Start: func(ctx DraftContext, p geom.Point) StartResult {
			o := build(ctx, p)
			o.ID = ctx.newID()
			return StartResult{Kind: StartCreated, Object: o}
		},
		Update: func(_ DraftContext, d Draft, p geom.Point) Draft {
			d.Current = p
			return d
		},
		Finish: func(DraftContext, Draft) (board.Object, bool) {
			return board.Object{}, false
		},
	}
}

// connectorDraft must start on a connectable shape and end on a different
// one. The preview is a plain line from the source to the pointer.
func connectorDraft() *DraftLifecycle {
	preview := func(ctx DraftContext, from, cur geom.Point) board.Object {
		return styled(board.Object{
			Type: board.Line, X: from.X, Y: from.Y, X2: cur.X, Y2: cur.Y,
			ArrowEnd: board.ArrowHead,
		}, ctx.Style)
	}
	source := func(ctx DraftContext, d Draft) (geom.Point, bool) {
		if d.From == nil {
			return geom.Point{}, false
		}
		return resolveEndpoint(ctx.Objects, *d.From, ctx.env())
	}
	return &DraftLifecycle{
		CancelOnLeave: true,
		Start: func(ctx DraftContext, p geom.Point) StartResult {
			env := ctx.env()
			target, ok := TopmostAt(ctx.Objects, p, env, func(o board.Object) bool { return Connectable(o.Type) })
			if !ok {
				return StartResult{Kind: StartNoop}
			}
			from := board.Endpoint{
				ObjectID:   target.ID,
				Attachment: PickAttachment(target, p, ctx.Viewport, nil, env),
			}
			d := Draft{Tool: board.Connector, Start: p, Current: p, From: &from}
			sp, _ := source(ctx, d)
			d.Preview = preview(ctx, sp, p)
			return StartResult{Kind: StartDrafting, Draft: d}
		},
		Update: func(ctx DraftContext, d Draft, p geom.Point) Draft {
			d.Current = p
			if sp, ok := source(ctx, d); ok {
				d.Preview = preview(ctx, sp, p)
			}
			return d
		},
		Finish: func(ctx DraftContext, d Draft) (board.Object, bool) {
			sp, ok := source(ctx, d)
			if !ok {
				return board.Object{}, false
			}
			env := ctx.env()
			target, ok := TopmostAt(ctx.Objects, d.Current, env, func(o board.Object) bool {
				return Connectable(o.Type) && o.ID != d.From.ObjectID
			})
			if !ok {
				return board.Object{}, false
			}
			from := *d.From
			to := board.Endpoint{
				ObjectID:   target.ID,
				Attachment: PickAttachment(target, d.Current, ctx.Viewport, &sp, env),
			}
			o := styled(board.Object{
				ID:         ctx.newID(),
				Type:       board.Connector,
				From:       &from,
				To:         &to,
				ArrowStart: board.ArrowNone,
				ArrowEnd:   board.ArrowHead,
			}, ctx.Style)
			return o, true
		},
	}
}
