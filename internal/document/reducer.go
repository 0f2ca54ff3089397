package document

import (
	"slices"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
)

// ActionKind tags an Action.
type ActionKind string

const (
	ResetBoard          ActionKind = "resetBoard"
	ApplyEvent          ActionKind = "applyEvent"
	ApplyRemoteEvent    ActionKind = "applyRemoteEvent"
	Undo                ActionKind = "undo"
	Redo                ActionKind = "redo"
	SetViewport         ActionKind = "setViewport"
	ApplyTransientPatch ActionKind = "applyTransientPatch"
)

// Action is one input to Reduce. Only the fields matching Kind are read.
type Action struct {
	Kind     ActionKind
	Document board.Document
	Event    board.Event
	Viewport geom.Viewport
	ObjectID string
	Patch    board.Patch
}

func ResetAction(doc board.Document) Action { return Action{Kind: ResetBoard, Document: doc} }
func EventAction(ev board.Event) Action     { return Action{Kind: ApplyEvent, Event: ev} }
func RemoteAction(ev board.Event) Action    { return Action{Kind: ApplyRemoteEvent, Event: ev} }
func UndoAction() Action                    { return Action{Kind: Undo} }
func RedoAction() Action                    { return Action{Kind: Redo} }
func ViewportAction(v geom.Viewport) Action { return Action{Kind: SetViewport, Viewport: v} }

func TransientAction(objectID string, p board.Patch) Action {
	return Action{Kind: ApplyTransientPatch, ObjectID: objectID, Patch: p}
}

// Reduce returns the document that results from applying a to doc. doc is
// never modified.
func Reduce(doc board.Document, a Action) board.Document {
	switch a.Kind {
	case ResetBoard:
		return reset(a.Document)
	case ApplyEvent:
		return applyEvent(doc, a.Event, false)
	case ApplyRemoteEvent:
		return applyEvent(doc, a.Event, true)
	case Undo:
		return undo(doc)
	case Redo:
		return redo(doc)
	case SetViewport:
		doc.Viewport = a.Viewport.Normalize()
		return doc
	case ApplyTransientPatch:
		return applyTransient(doc, a.ObjectID, a.Patch)
	}
	return doc
}

func reset(in board.Document) board.Document {
	doc := in.Clone()
	if doc.Objects == nil {
		doc.Objects = []board.Object{}
	}
	doc.SelectedObjectIDs = existingIDs(doc.Objects, doc.SelectedObjectIDs)
	doc.Viewport = doc.Viewport.Normalize()
	doc.Meta.BoardType = board.ParseBoardType(string(doc.Meta.BoardType))
	return doc
}

func stateOf(doc board.Document) State {
	return State{Objects: doc.Objects, SelectedObjectIDs: doc.SelectedObjectIDs}
}

// withBaseline captures the replay baseline the first time history is
// touched. A document that already carries history but no baseline replays
// from an empty board.
func withBaseline(doc board.Document) board.Document {
	if doc.History.Baseline != nil {
		return doc
	}
	b := &board.Baseline{Objects: []board.Object{}, SelectedObjectIDs: []string{}}
	if len(doc.History.PastEvents) == 0 {
		b.Objects = board.CloneObjects(doc.Objects)
		b.SelectedObjectIDs = slices.Clone(doc.SelectedObjectIDs)
	}
	doc.History.Baseline = b
	return doc
}

func baselineState(doc board.Document) State {
	b := doc.History.Baseline
	if b == nil {
		return State{}
	}
	return State{Objects: b.Objects, SelectedObjectIDs: b.SelectedObjectIDs}
}

func hasEvent(events []board.Event, id string) bool {
	return id != "" && slices.ContainsFunc(events, func(e board.Event) bool { return e.ID == id })
}

func touch(doc board.Document, ev board.Event) board.Document {
	if ev.Timestamp.After(doc.Meta.UpdatedAt) {
		doc.Meta.UpdatedAt = ev.Timestamp
	}
	return doc
}

// applyEvent handles both local and remote events. Remote selection and
// viewport changes are ignored since both are per-user state, and remote
// object events never clear the redo stack.
func applyEvent(doc board.Document, ev board.Event, remote bool) board.Document {
	switch ev.Type {
	case board.ViewportChanged:
		if remote || ev.Viewport == nil {
			return doc
		}
		doc.Viewport = ev.Viewport.Apply(doc.Viewport)
		return doc
	case board.SelectionChanged:
		if remote {
			return doc
		}
		s, _ := applyToState(stateOf(doc), ev)
		doc.SelectedObjectIDs = s.SelectedObjectIDs
		return doc
	}

	if remote && hasEvent(doc.History.PastEvents, ev.ID) {
		return doc
	}
	ev, ok := EnforcePolicy(doc.Meta.BoardType, doc.Objects, ev)
	if !ok {
		return doc
	}
	s, changed := applyToState(stateOf(doc), ev)
	if !changed {
		return doc
	}

	doc = withBaseline(doc)
	doc.Objects = s.Objects
	doc.SelectedObjectIDs = s.SelectedObjectIDs
	doc.History.PastEvents = append(slices.Clone(doc.History.PastEvents), ev)
	if !remote {
		doc.History.FutureEvents = []board.Event{}
	}
	return touch(doc, ev)
}

func undo(doc board.Document) board.Document {
	n := len(doc.History.PastEvents)
	if n == 0 {
		return doc
	}
	doc = withBaseline(doc)
	last := doc.History.PastEvents[n-1]
	past := slices.Clone(doc.History.PastEvents[:n-1])

	s := Replay(baselineState(doc), past)
	doc.Objects = s.Objects
	doc.SelectedObjectIDs = existingIDs(s.Objects, doc.SelectedObjectIDs)
	doc.History.PastEvents = past
	doc.History.FutureEvents = append([]board.Event{last}, doc.History.FutureEvents...)
	return doc
}

// redo replays the next undone event. Board policy may have changed since it
// was recorded, so it is enforced again and an event that no longer does
// anything is dropped instead of replayed.
func redo(doc board.Document) board.Document {
	if len(doc.History.FutureEvents) == 0 {
		return doc
	}
	next := doc.History.FutureEvents[0]
	rest := slices.Clone(doc.History.FutureEvents[1:])

	ev, ok := EnforcePolicy(doc.Meta.BoardType, doc.Objects, next)
	if !ok {
		doc.History.FutureEvents = rest
		return doc
	}
	s, changed := applyToState(stateOf(doc), ev)
	if !changed {
		doc.History.FutureEvents = rest
		return doc
	}

	doc = withBaseline(doc)
	doc.Objects = s.Objects
	doc.SelectedObjectIDs = existingIDs(s.Objects, s.SelectedObjectIDs)
	doc.History.PastEvents = append(slices.Clone(doc.History.PastEvents), ev)
	doc.History.FutureEvents = rest
	return touch(doc, ev)
}

func applyTransient(doc board.Document, id string, p board.Patch) board.Document {
	i := board.IndexOf(doc.Objects, id)
	if i < 0 {
		return doc
	}
	if locked, ok := board.PolicyFor(doc.Meta.BoardType).LockedFor(doc.Objects[i].Type); ok {
		p = p.Without(locked.Fields()...)
	}
	if p.IsEmpty() {
		return doc
	}
	// The baseline must predate the first live edit of a loaded board.
	doc = withBaseline(doc)
	objs := slices.Clone(doc.Objects)
	objs[i] = p.Apply(objs[i])
	doc.Objects = objs
	return doc
}
