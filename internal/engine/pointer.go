package engine

import (
	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/document"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
	"github.com/erland/pwa-whiteboard-sub000/internal/interact"
)

type transition func(interact.Machine, interact.Input, geom.Point) (interact.Machine, interact.Output)

// PointerDown feeds a pointer press at canvas point c.
func (e *Engine) PointerDown(c geom.Point) interact.Output {
	return e.pointer(interact.Machine.PointerDown, c)
}

// PointerMove feeds a pointer move.
func (e *Engine) PointerMove(c geom.Point) interact.Output {
	return e.pointer(interact.Machine.PointerMove, c)
}

// PointerUp feeds a pointer release.
func (e *Engine) PointerUp(c geom.Point) interact.Output {
	return e.pointer(interact.Machine.PointerUp, c)
}

// PointerLeave reports the pointer leaving the canvas.
func (e *Engine) PointerLeave(c geom.Point) interact.Output {
	return e.pointer(interact.Machine.PointerLeave, c)
}

// Gesture returns the interaction state.
func (e *Engine) Gesture() interact.Machine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine
}

// CancelGesture abandons the active gesture and restores whatever it had
// changed transiently.
func (e *Engine) CancelGesture() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelGesture()
}

func (e *Engine) cancelGesture() {
	if d := e.machine.Drag; d != nil {
		switch d.Kind {
		case interact.DragPan:
			e.apply(document.ViewportAction(d.StartViewport))
		default:
			if live, ok := e.doc.Object(d.ObjectID); ok {
				e.apply(document.TransientAction(d.ObjectID, board.Diff(live, d.Original)))
			}
		}
	}
	e.machine = e.machine.Cancel()
}

func (e *Engine) input() interact.Input {
	return interact.Input{
		BoardID:     e.doc.Meta.ID,
		Tool:        e.tool,
		Style:       e.style,
		Objects:     e.doc.Objects,
		SelectedIDs: e.doc.SelectedObjectIDs,
		Viewport:    e.doc.Viewport,
		NewID:       e.newID,
	}
}

func (e *Engine) pointer(step transition, c geom.Point) interact.Output {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, out := step(e.machine, e.input(), c)
	e.machine = next

	for _, t := range out.Transient {
		e.apply(document.TransientAction(t.ObjectID, t.Patch))
	}
	if out.Viewport != nil {
		e.apply(document.ViewportAction(*out.Viewport))
		if next.Phase == interact.PhaseIdle {
			e.scheduleSave()
		}
	}
	for _, ev := range out.Events {
		e.applyLocal(ev)
	}
	return out
}
