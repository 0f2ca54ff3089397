// Package document is the event-sourced board reducer: it applies board
// events under the board-type policy, records undoable history and rebuilds
// state from a baseline on undo.
package document

import (
	"slices"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
)

// State is the replayable part of a document.
type State struct {
	Objects           []board.Object
	SelectedObjectIDs []string
}

// applyToState folds one object or selection event into s. Viewport events
// are handled by the caller since they are not part of replayable state.
// It reports whether anything changed.
func applyToState(s State, ev board.Event) (State, bool) {
	switch ev.Type {
	case board.ObjectCreated:
		if ev.Object == nil || board.IndexOf(s.Objects, ev.Object.ID) >= 0 {
			return s, false
		}
		s.Objects = append(slices.Clone(s.Objects), ev.Object.Clone())
		return s, true

	case board.ObjectUpdated:
		i := board.IndexOf(s.Objects, ev.ObjectID)
		if i < 0 || ev.Patch == nil {
			return s, false
		}
		objs := slices.Clone(s.Objects)
		objs[i] = ev.Patch.Apply(objs[i])
		s.Objects = objs
		return s, true

	case board.ObjectDeleted:
		i := board.IndexOf(s.Objects, ev.ObjectID)
		if i < 0 {
			return s, false
		}
		s.Objects = slices.Delete(slices.Clone(s.Objects), i, i+1)
		s.SelectedObjectIDs = slices.DeleteFunc(slices.Clone(s.SelectedObjectIDs), func(id string) bool {
			return id == ev.ObjectID
		})
		return s, true

	case board.SelectionChanged:
		s.SelectedObjectIDs = existingIDs(s.Objects, ev.SelectedIDs)
		return s, true
	}
	return s, false
}

// existingIDs keeps the ids that are present in objs, without duplicates.
func existingIDs(objs []board.Object, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if board.IndexOf(objs, id) >= 0 && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// Replay rebuilds state by applying events to baseline from scratch.
func Replay(baseline State, events []board.Event) State {
	s := State{
		Objects:           board.CloneObjects(baseline.Objects),
		SelectedObjectIDs: slices.Clone(baseline.SelectedObjectIDs),
	}
	if s.Objects == nil {
		s.Objects = []board.Object{}
	}
	if s.SelectedObjectIDs == nil {
		s.SelectedObjectIDs = []string{}
	}
	for _, ev := range events {
		s, _ = applyToState(s, ev)
	}
	return s
}
