package board

import (
	"slices"
	"time"

	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
)

// Meta describes a board independently of its content.
type Meta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BoardType BoardType `json:"boardType"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Baseline is the object state history replays from.
type Baseline struct {
	Objects           []Object `json:"objects"`
	SelectedObjectIDs []string `json:"selectedObjectIds"`
}

// History holds the undo and redo stacks. PastEvents is oldest first,
// FutureEvents holds the next event to redo at index 0.
type History struct {
	PastEvents   []Event   `json:"pastEvents"`
	FutureEvents []Event   `json:"futureEvents"`
	Baseline     *Baseline `json:"baseline,omitempty"`
}

// Document is the full live state of one board. Objects are kept in
// z-order, last on top.
type Document struct {
	Meta              Meta          `json:"meta"`
	Objects           []Object      `json:"objects"`
	SelectedObjectIDs []string      `json:"selectedObjectIds"`
	Viewport          geom.Viewport `json:"viewport"`
	History           History       `json:"history"`
}

// NewDocument returns an empty board.
func NewDocument(meta Meta) Document {
	return Document{
		Meta:              meta,
		Objects:           []Object{},
		SelectedObjectIDs: []string{},
		Viewport:          geom.DefaultViewport(),
	}
}

// Clone deep-copies the document, history included.
func (d Document) Clone() Document {
	out := d
	out.Objects = CloneObjects(d.Objects)
	out.SelectedObjectIDs = slices.Clone(d.SelectedObjectIDs)
	out.History.PastEvents = slices.Clone(d.History.PastEvents)
	out.History.FutureEvents = slices.Clone(d.History.FutureEvents)
	if d.History.Baseline != nil {
		b := Baseline{
			Objects:           CloneObjects(d.History.Baseline.Objects),
			SelectedObjectIDs: slices.Clone(d.History.Baseline.SelectedObjectIDs),
		}
		out.History.Baseline = &b
	}
	return out
}

// Object returns the object with id.
func (d Document) Object(id string) (Object, bool) {
	return Find(d.Objects, id)
}

// Selected returns the selected objects in z-order.
func (d Document) Selected() []Object {
	var out []Object
	for _, o := range d.Objects {
		if slices.Contains(d.SelectedObjectIDs, o.ID) {
			out = append(out, o)
		}
	}
	return out
}

// ObjectIDs returns the set of ids present on the board.
func (d Document) ObjectIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(d.Objects))
	for _, o := range d.Objects {
		ids[o.ID] = struct{}{}
	}
	return ids
}

// CanUndo reports whether there is history to step back through.
func (d Document) CanUndo() bool { return len(d.History.PastEvents) > 0 }

// CanRedo reports whether there is undone history to replay.
func (d Document) CanRedo() bool { return len(d.History.FutureEvents) > 0 }
